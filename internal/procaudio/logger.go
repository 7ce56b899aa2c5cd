package procaudio

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger abstracts leveled logging, following the teacher's small
// interface-over-concrete-backend idiom so tests can inject a silent or
// recording logger instead of a package-level global.
type Logger interface {
	Trace(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ZerologLogger is the default Logger, backed by rs/zerolog and gated by
// PROCTAP_LOG_LEVEL ({off, error, warn, info, debug, trace}).
type ZerologLogger struct {
	log zerolog.Logger
}

// NewLogger builds the default logger from PROCTAP_LOG_LEVEL.
func NewLogger() *ZerologLogger {
	level := parseLevel(os.Getenv("PROCTAP_LOG_LEVEL"))
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	return &ZerologLogger{log: l}
}

func parseLevel(v string) zerolog.Level {
	switch v {
	case "off":
		return zerolog.Disabled
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.WarnLevel
	}
}

func (l *ZerologLogger) Trace(msg string, args ...interface{}) { l.log.Trace().Msgf(msg, args...) }
func (l *ZerologLogger) Debug(msg string, args ...interface{}) { l.log.Debug().Msgf(msg, args...) }
func (l *ZerologLogger) Info(msg string, args ...interface{})  { l.log.Info().Msgf(msg, args...) }
func (l *ZerologLogger) Warn(msg string, args ...interface{})  { l.log.Warn().Msgf(msg, args...) }
func (l *ZerologLogger) Error(msg string, args ...interface{}) { l.log.Error().Msgf(msg, args...) }

// NopLogger discards everything, for callers that want a silent
// Options.Logger.
type NopLogger struct{}

func (NopLogger) Trace(string, ...interface{}) {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
