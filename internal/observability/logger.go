package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes JSON to stdout. level overrides the env default
// (debug in dev, info elsewhere) when it names a valid slog level.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	var lvl slog.Level

	switch {
	case level != "":
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			lvl = slog.LevelInfo
		}
	case env == "dev":
		lvl = slog.LevelDebug
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(NewContextHandler(handler))
}
