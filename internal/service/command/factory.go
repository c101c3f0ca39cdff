package command

import (
	"github.com/sandevgo/airbot/internal/core"
)

func NewCommands(sessions SessionStore, historyTurns int) []core.Command {
	return []core.Command{
		NewResetCommand(sessions),
		NewSessionCommand(sessions),
		NewHistoryCommand(sessions, historyTurns),
	}
}
