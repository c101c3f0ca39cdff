package log

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// GooseLogger sends goose migration output through zerolog. Progress
// lines go to debug so a normal start stays quiet.
type GooseLogger struct {
	logger zerolog.Logger
}

func NewGooseLoggerFromCtx(ctx context.Context) *GooseLogger {
	return NewGooseLogger(*FromCtx(ctx))
}

func NewGooseLogger(l zerolog.Logger) *GooseLogger {
	return &GooseLogger{logger: l.With().Str("component", "migrate").Logger()}
}

func (g *GooseLogger) Fatalf(format string, v ...any) {
	g.logger.Fatal().Msg(line(format, v))
}

func (g *GooseLogger) Printf(format string, v ...any) {
	g.logger.Debug().Msg(line(format, v))
}

func line(format string, v []any) string {
	return strings.TrimRight(fmt.Sprintf(format, v...), "\n")
}
