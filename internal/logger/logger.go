// Package logger provides structured logging for imagemeta.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with imagemeta-specific helpers.
// The zero value and a nil *Logger discard everything.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// New creates a structured logger. Unlike zerolog's global level, the level
// is set on this logger only.
func New(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "imagemeta").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// FromZerolog adopts an existing zerolog logger.
func FromZerolog(z zerolog.Logger) *Logger {
	return &Logger{zlog: z}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.zlog
}

// Component returns a logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.Zerolog().With().Str("component", name).Logger()}
}

// Debug starts a debug event.
func (l *Logger) Debug() *zerolog.Event { return l.Zerolog().Debug() }

// Info starts an info event.
func (l *Logger) Info() *zerolog.Event { return l.Zerolog().Info() }

// Warn starts a warning event.
func (l *Logger) Warn() *zerolog.Event { return l.Zerolog().Warn() }

// Error starts an error event.
func (l *Logger) Error() *zerolog.Event { return l.Zerolog().Error() }

// LogSegment records the outcome of parsing one container segment.
func (l *Logger) LogSegment(index int, kind string, offset int64, duration time.Duration, err error) {
	event := l.Debug()
	if err != nil {
		event = l.Warn().Err(err)
	}
	event.
		Int("segment", index).
		Str("type", kind).
		Int64("offset", offset).
		Dur("duration_ms", duration).
		Msg("segment parsed")
}

// LogExtract records a completed extraction.
func (l *Logger) LogExtract(format string, segments, failed int, duration time.Duration) {
	l.Debug().
		Str("format", format).
		Int("segments", segments).
		Int("failed", failed).
		Dur("duration_ms", duration).
		Msg("metadata extracted")
}

// LogVersion records a stored version.
func (l *Logger) LogVersion(id, parent, representation string, size int) {
	l.Debug().
		Str("version", id).
		Str("parent", parent).
		Str("representation", representation).
		Int("bytes", size).
		Msg("version created")
}

// LogMerge records a three-way merge.
func (l *Logger) LogMerge(base, a, b string, conflicts int, err error) {
	event := l.Info()
	if err != nil {
		event = l.Warn().Err(err)
	}
	event.
		Str("base", base).
		Str("a", a).
		Str("b", b).
		Int("conflicts", conflicts).
		Msg("versions merged")
}
