package logger

import (
	"io"
	"os"
	"strings"

	"go-archive-app/internal/config"

	"github.com/rs/zerolog"
)

// Logger defines a standard interface for logging.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error, msg string)
	Fatal(err error, msg string)
	With(fields map[string]interface{}) Logger
}

type zerologLogger struct {
	zl zerolog.Logger
}

// New creates a Logger writing to out, or stdout when out is nil. An unknown level
// falls back to info with a warning on stderr.
func New(cfg config.LogConfig, out io.Writer) Logger {
	if out == nil {
		out = os.Stdout
	}
	zl := zerolog.New(writer(cfg.Format, out)).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Str("app", "archive").
		Logger()
	return &zerologLogger{zl: zl}
}

func writer(format string, out io.Writer) io.Writer {
	if strings.EqualFold(format, "console") {
		return zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stdout, TimeFormat: "15:04:05"}
	}
	return out
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		tmp := zerolog.New(os.Stderr)
		tmp.Warn().Str("level", s).Msg("Invalid log level, defaulting to info")
		return zerolog.InfoLevel
	}
	return level
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}

func (l *zerologLogger) Debug(msg string) { l.zl.Debug().Msg(msg) }

func (l *zerologLogger) Info(msg string) { l.zl.Info().Msg(msg) }

func (l *zerologLogger) Warn(msg string) { l.zl.Warn().Msg(msg) }

func (l *zerologLogger) Error(err error, msg string) { l.zl.Error().Err(err).Msg(msg) }

// Fatal logs and exits the process.
func (l *zerologLogger) Fatal(err error, msg string) { l.zl.Fatal().Err(err).Msg(msg) }

// With returns a child logger carrying fields on every entry.
func (l *zerologLogger) With(fields map[string]interface{}) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}
