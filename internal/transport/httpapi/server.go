// Package httpapi exposes the assistant over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/service/assistant"
	"github.com/sandevgo/airbot/pkg/log"
)

type Asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Response
}

type SessionStore interface {
	Get(ctx context.Context, id string) (*core.Session, error)
	Reset(ctx context.Context, id string) error
}

// TurnReader lists logged turns, oldest first.
type TurnReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]core.TurnRecord, error)
}

type Server struct {
	cfg    *config.HTTPConfig
	engine *gin.Engine
	srv    *http.Server
}

// NewServer wires the routes. turns may be nil when no queryable chat
// log is configured.
func NewServer(ctx context.Context, cfg *config.HTTPConfig, a Asker, sessions SessionStore, turns TurnReader) *Server {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(ctx))

	h := &handlers{assistant: a, sessions: sessions, turns: turns}
	engine.GET("/healthz", h.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	{
		v1.POST("/ask", h.ask)
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id", h.getSession)
			sessions.DELETE("/:id", h.deleteSession)
			if turns != nil {
				sessions.GET("/:id/turns", h.listTurns)
			}
		}
	}

	return &Server{
		cfg:    cfg,
		engine: engine,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// requestLogger logs every request through the context logger and
// hands it to handlers via the request context.
func requestLogger(base context.Context) gin.HandlerFunc {
	logger := log.FromCtx(base)
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
