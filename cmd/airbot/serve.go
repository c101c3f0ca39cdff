package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/transport/httpapi"
	"github.com/sandevgo/airbot/internal/transport/telegram"
	"github.com/sandevgo/airbot/pkg/log"
	"github.com/sandevgo/airbot/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Serve the HTTP API and the Telegram bot",
	Long:         `Starts every enabled transport (ENABLE_HTTP, ENABLE_TELEGRAM) and the session janitor.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting airbot")

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}

		services, err := initTransports(ctx, app)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			return fmt.Errorf("no transport enabled, set ENABLE_HTTP or ENABLE_TELEGRAM")
		}
		// stores first so they are stopped last
		services = append(append(app.cleanups, app.janitor), services...)

		srv.StartServices(ctx, services)
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("airbot has been shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func initTransports(ctx context.Context, app *App) ([]srv.Service, error) {
	var services []srv.Service

	if app.cfg.EnableHTTP {
		var turns httpapi.TurnReader
		if app.turns != nil {
			turns = app.turns
		}
		services = append(services, httpapi.NewServer(ctx, config.NewHTTPConfig(ctx), app.assistant, app.sessions, turns))
	}

	if app.cfg.IsTelegramSelected() {
		bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), app.assistant, app.commands)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	return services, nil
}
