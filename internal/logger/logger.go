package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	logger zerolog.Logger
}

// New creates a new logger instance writing to stdout
func New(level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a logger that writes to the given writer.
// Format "text" renders human readable console lines, anything else emits JSON.
func NewWithWriter(out io.Writer, level, format string) *Logger {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}

	if format == "text" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).Level(logLevel).With().Timestamp().Logger()

	return &Logger{logger: logger}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Infof logs an info message with formatting
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Errorf logs an error message with formatting
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Debugf logs a debug message with formatting
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a warning message with formatting
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

// With creates a child logger with additional fields
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// Printf satisfies the logger interfaces of libraries that only know
// printf-style output (golang-migrate). Lines are logged at debug level.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.logger.Debug().Msg(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}

// Component returns the underlying zerolog logger tagged with a component
// field, for libraries that take a zerolog.Logger (whatsmeow). A level that
// does not parse keeps the parent level.
func (l *Logger) Component(name, level string) zerolog.Logger {
	zl := l.logger.With().Str("component", name).Logger()
	if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		zl = zl.Level(parsed)
	}
	return zl
}
