package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sandevgo/airbot/internal/service/assistant"
	"github.com/spf13/cobra"
)

var errMalformedInput = errors.New("malformed input")

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Answer one query and print the response as JSON",
	Long: `Answers a single query. The query is the joined arguments, or, without
arguments, a JSON object {"query": "...", "session_id": "..."} read from stdin.
Exactly one JSON object is written to stdout; logs go to stderr.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLoggerTo(cmd.Context(), os.Stderr)
		defer flushLog()

		return runAsk(ctx, args, cmd.InOrStdin(), cmd.OutOrStdout(), askSessionID, openAsker)
	},
}

type asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Response
}

// openFunc builds the assistant and returns a release func.
type openFunc func(ctx context.Context) (asker, func(), error)

func openAsker(ctx context.Context) (asker, func(), error) {
	app, err := NewApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	return app.assistant, func() { app.Close(ctx) }, nil
}

// runAsk writes exactly one JSON object to out, failures included. The
// returned error only sets the exit code.
func runAsk(ctx context.Context, args []string, in io.Reader, out io.Writer, sessionID string, open openFunc) error {
	req, err := parseAskInput(args, in, sessionID)
	if err != nil {
		_ = writeJSON(out, assistant.Failure("", err))
		return err
	}

	a, release, err := open(ctx)
	if err != nil {
		_ = writeJSON(out, assistant.Failure(req.SessionID, err))
		return err
	}
	defer release()

	return writeJSON(out, a.Ask(ctx, req))
}

func init() {
	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "session id to continue")
	rootCmd.AddCommand(askCmd)
}

// parseAskInput prefers arguments over stdin.
func parseAskInput(args []string, stdin io.Reader, sessionID string) (assistant.Request, error) {
	if len(args) > 0 {
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return assistant.Request{}, fmt.Errorf("%w: empty query", errMalformedInput)
		}
		return assistant.Request{Query: q, SessionID: sessionID}, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return assistant.Request{}, fmt.Errorf("failed to read stdin: %w", err)
	}
	var req assistant.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return assistant.Request{}, fmt.Errorf("%w: %v", errMalformedInput, err)
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return assistant.Request{}, fmt.Errorf("%w: query is required", errMalformedInput)
	}
	if req.SessionID == "" {
		req.SessionID = sessionID
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
