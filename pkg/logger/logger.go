// Package logger configures the process-wide zerolog logger.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	// Level is the minimum level to output (debug, info, warn, error, disabled).
	Level string
	// Format is "console" for human output, anything else for JSON.
	Format string
	Output io.Writer
}

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Setup builds the logger from cfg and installs it as the default, including
// for zerolog.Ctx lookups on contexts that carry no logger.
func Setup(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	base = l
	zerolog.DefaultContextLogger = &base
	return l
}

func L() *zerolog.Logger {
	return &base
}

// Ctx returns the request-scoped logger when the context carries one.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &base
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &base
	}
	return l
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
