package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sandevgo/airbot/internal/transport/cli"
	"github.com/sandevgo/airbot/pkg/log"
	"github.com/sandevgo/airbot/pkg/srv"
	"github.com/spf13/cobra"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:          "chat",
	Short:        "Chat interactively in the terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))

		id := chatSessionID
		if id == "" {
			id = app.sessions.NewID()
		}
		rl, err := cli.NewReadLine(app.assistant, app.commands, app.cfg, id)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		services := []srv.Service{app.janitor}
		srv.StartServices(ctx, services)

		err = rl.Start(ctx)
		cancel()
		_ = rl.Shutdown(ctx)
		srv.ShutdownServices(ctx, services)
		log.FromCtx(ctx).Debug().Msg("chat closed")
		return err
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "session id to continue")
	rootCmd.AddCommand(chatCmd)
}
