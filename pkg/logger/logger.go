// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(consoleWriter(os.Stderr), zerolog.InfoLevel)
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetLevel sets the log level. Server modes ("debug", "release") are accepted
// as aliases for debug and info.
func SetLevel(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "release":
		levelStr = "info"
	case "test":
		levelStr = "warn"
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil || levelStr == "" {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}

// SetFormat switches the output between "console" (default) and "json".
// CLI commands keep stdout for reports, so logs always go to stderr.
func SetFormat(format string) {
	level := Log.GetLevel()
	if strings.EqualFold(format, "json") {
		Log = newLogger(os.Stderr, level)
		return
	}
	Log = newLogger(consoleWriter(os.Stderr), level)
}

// Configure applies format and level, then points the zerolog/log global at Log
// so packages logging through either share one output.
func Configure(level, format string) {
	SetFormat(format)
	SetLevel(level)
	log.Logger = Log
}
