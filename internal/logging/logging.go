// Package logging builds the process logger. Components receive it explicitly.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// DebugEnv enables debug-level records when set to a true value.
const DebugEnv = "SMART_MEMORY_DEBUG"

// New returns a text logger writing to w. Every record carries a session
// attribute that is unique to this logger.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("session", uuid.NewString())
}

// FromEnv returns a stderr logger whose level follows DebugEnv.
func FromEnv() *slog.Logger {
	return New(os.Stderr, DebugEnabled())
}

// DebugEnabled reports whether DebugEnv holds a true value.
func DebugEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv(DebugEnv))
	return err == nil && v
}
