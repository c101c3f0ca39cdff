package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
)

type Router struct {
	commands  map[string]core.Command
	formatter *ResponseFormatter
}

func New(commands []core.Command) *Router {
	c := &Router{
		commands:  make(map[string]core.Command),
		formatter: NewResponseFormatter(),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	return c
}

// Execute runs input when it is a slash command. The bool reports
// whether input was consumed.
func (c *Router) Execute(ctx context.Context, sessionID, input string) (string, bool) {
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.TrimPrefix(parts[0], "/")
	// Telegram appends the bot name in groups: /reset@airbot
	name, _, _ = strings.Cut(name, "@")
	args := parts[1:]

	if name == "help" || name == "start" {
		return c.help(), true
	}

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("알 수 없는 명령입니다: /%s\n\n%s", name, c.help()), true
	}

	result, err := cmd.Execute(ctx, sessionID, args)
	if err != nil {
		return fmt.Sprintf("오류: %v", err), true
	}
	return result, true
}

func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

func (c *Router) help() string {
	items := make([]string, 0, len(c.commands))
	for _, cmd := range c.ListCommands() {
		items = append(items, fmt.Sprintf("/%s  %s", cmd.Name(), cmd.Description()))
	}
	return c.formatter.Combine(c.formatter.Info("명령어"), c.formatter.List(items))
}
