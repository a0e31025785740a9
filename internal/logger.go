package internal

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

// VerboseMode disables spinners so log lines are not interleaved with them.
var VerboseMode bool

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogLevel sets the level of Logger. The debug level also turns on
// VerboseMode.
func SetLogLevel(level string) {
	VerboseMode = level == "debug"
	SetLogOutput(os.Stderr, level)
}

// SetLogOutput replaces Logger with a text logger writing to w.
func SetLogOutput(w io.Writer, level string) {
	Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}
