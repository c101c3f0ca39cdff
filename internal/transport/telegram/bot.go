package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/service/assistant"
	"github.com/sandevgo/airbot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

type Asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Response
}

type Bot struct {
	bot       *tele.Bot
	cfg       *config.TelegramConfig
	assistant Asker
	commands  core.CmdRouter
	sender    *sender
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	a Asker,
	commands core.CmdRouter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:       b,
		cfg:       cfg,
		assistant: a,
		commands:  commands,
		sender:    newSender(b),
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})
	b.Use(ownerOnly(cfg.OwnerID))

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

// ownerOnly drops updates from anyone but the owner.
func ownerOnly(ownerID int64) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != ownerID {
				return nil
			}
			return next(c)
		}
	}
}

func (b *Bot) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	menu := make([]tele.Command, 0)
	for _, c := range b.commands.ListCommands() {
		menu = append(menu, tele.Command{Text: c.Name(), Description: c.Description()})
	}
	if err := b.bot.SetCommands(menu); err != nil {
		logger.Warn().Err(err).Msg("failed to set telegram command menu")
	}

	logger.Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

// SessionID keeps one conversation per chat.
func SessionID(chatID int64) string {
	return fmt.Sprintf("telegram-%d", chatID)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	sessionID := SessionID(c.Chat().ID)

	if reply, ok := b.commands.Execute(ctx, sessionID, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Chat(), reply)
	}

	_ = c.Notify(tele.Typing)
	resp := b.assistant.Ask(ctx, assistant.Request{Query: c.Text(), SessionID: sessionID})
	if resp.Error != "" {
		log.FromCtx(ctx).Error().Str("error", resp.Error).Str("session", sessionID).Msg("turn failed")
	}
	return b.sender.sendMarkdown(ctx, c.Chat(), resp.Answer)
}
