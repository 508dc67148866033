// Package buildlog threads a structured logger through explicit context
// records rather than keeping it at package scope (design note: "global
// mutable state ... should be threaded through an explicit context record").
package buildlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the small set of helpers the bundler
// pipeline needs; callers pass it explicitly down the call chain.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing to w (os.Stderr in production, a buffer in
// tests) at the given level name ("debug", "info", "warn", "error").
func New(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return Logger{zl: zl}
}

// Default returns a Logger writing to stderr at info level, suitable as a
// fallback when no explicit Logger has been threaded in yet (e.g. very early
// CLI startup before flags are parsed).
func Default() Logger {
	return New(os.Stderr, "info")
}

func (l Logger) Info(msg string)                      { l.zl.Info().Msg(msg) }
func (l Logger) Infof(format string, args ...any)      { l.zl.Info().Msgf(format, args...) }
func (l Logger) Warnf(format string, args ...any)      { l.zl.Warn().Msgf(format, args...) }
func (l Logger) Debugf(format string, args ...any)     { l.zl.Debug().Msgf(format, args...) }
func (l Logger) Errorf(format string, args ...any)     { l.zl.Error().Msgf(format, args...) }

// With returns a derived Logger carrying the given key/value as structured
// context on every subsequent entry (e.g. the app name, the platform).
func (l Logger) With(key string, value string) Logger {
	return Logger{zl: l.zl.With().Str(key, value).Logger()}
}
