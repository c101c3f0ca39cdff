package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/service/assistant"
	"github.com/sandevgo/airbot/internal/service/ui"
	"github.com/sandevgo/airbot/pkg/conv"
	"github.com/sandevgo/airbot/pkg/log"
)

type Asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Response
}

type ReadLine struct {
	cfg       *config.AppConfig
	assistant Asker
	commands  core.CmdRouter
	rl        *readline.Instance
	sessionID string
}

func NewReadLine(a Asker, commands core.CmdRouter, cfg *config.AppConfig, sessionID string) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     cfg.GetInputHistoryPath(),
		AutoComplete:    completer(commands),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:       cfg,
		assistant: a,
		commands:  commands,
		rl:        rl,
		sessionID: sessionID,
	}, nil
}

func completer(commands core.CmdRouter) readline.AutoCompleter {
	items := []readline.PrefixCompleterInterface{readline.PcItem("/help")}
	for _, c := range commands.ListCommands() {
		items = append(items, readline.PcItem("/"+c.Name()))
	}
	return readline.NewPrefixCompleter(items...)
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Str("session", r.sessionID).Msg("chat started, type 'exit' to quit")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}
		r.handle(ctx, line)
	}
}

func (r *ReadLine) handle(ctx context.Context, line string) {
	out := r.rl.Stdout()
	if reply, ok := r.commands.Execute(ctx, r.sessionID, line); ok {
		fmt.Fprintln(out, conv.MarkdownToText(reply))
		return
	}

	resp := r.assistant.Ask(ctx, assistant.Request{Query: line, SessionID: r.sessionID})
	r.sessionID = resp.SessionID
	fmt.Fprintln(out, conv.MarkdownToText(resp.Answer))
	fmt.Fprintln(out, ui.RouteBadge(resp.Route, resp.ProcessingTime))
	if resp.Error != "" {
		log.FromCtx(ctx).Error().Str("error", resp.Error).Msg("turn failed")
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
