package telegram

import (
	"context"
	"strings"

	"github.com/sandevgo/airbot/pkg/conv"
	"github.com/sandevgo/airbot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // below the 4096 limit

// Messenger is the part of telebot the sender needs.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type sender struct {
	bot Messenger
}

func newSender(bot Messenger) *sender {
	return &sender{bot: bot}
}

// sendMarkdown renders md as Telegram HTML and sends it in chunks. A
// chunk Telegram refuses to parse is resent as plain text.
func (s *sender) sendMarkdown(ctx context.Context, to tele.Recipient, md string) error {
	logger := log.FromCtx(ctx)
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(md)))
	if html == "" {
		return nil
	}

	for i, chunk := range conv.Split(html, maxTelegramMsgLen) {
		if _, err := s.bot.Send(to, chunk, tele.ModeHTML); err != nil {
			logger.Warn().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("html rejected, sending plain text")
			if _, err := s.bot.Send(to, conv.HTMLToText(chunk)); err != nil {
				logger.Error().Err(err).Int("chunk", i).Msg("failed to send telegram chunk")
				return err
			}
		}
	}
	return nil
}
