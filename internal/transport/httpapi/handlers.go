package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/service/assistant"
	"github.com/sandevgo/airbot/pkg/log"
)

const (
	defaultTurnLimit = 20
	maxTurnLimit     = 200
)

type handlers struct {
	assistant Asker
	sessions  SessionStore
	turns     TurnReader
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": core.AppVersion})
}

func (h *handlers) ask(c *gin.Context) {
	var req assistant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": assistant.ErrEmptyQuery.Error()})
		return
	}
	if req.SessionID != "" && !validID(c, strings.TrimSpace(req.SessionID)) {
		return
	}
	// turn failures are reported inside the response body
	c.JSON(http.StatusOK, h.assistant.Ask(c.Request.Context(), req))
}

// validID answers 400 and reports false for ids that cannot name a
// session.
func validID(c *gin.Context, id string) bool {
	if err := core.ValidateSessionID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *handlers) getSession(c *gin.Context) {
	if !validID(c, c.Param("id")) {
		return
	}
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, core.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.FromCtx(c.Request.Context()).Error().Err(err).Msg("failed to load session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handlers) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	if err := h.sessions.Reset(c.Request.Context(), id); err != nil {
		log.FromCtx(c.Request.Context()).Error().Err(err).Msg("failed to reset session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "session_id": id})
}

func (h *handlers) listTurns(c *gin.Context) {
	if !validID(c, c.Param("id")) {
		return
	}
	limit := defaultTurnLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTurnLimit)
	}

	turns, err := h.turns.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		log.FromCtx(c.Request.Context()).Error().Err(err).Msg("failed to list turns")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list turns"})
		return
	}
	if turns == nil {
		turns = []core.TurnRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "turns": turns})
}
