// Package logging configures the zerolog loggers used across layerfs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel names the environment variable holding the default log level.
const EnvLevel = "LAYERFS_LOG_LEVEL"

var (
	root zerolog.Logger
	once sync.Once
)

// Root returns the process-wide logger. Its level comes from
// LAYERFS_LOG_LEVEL and defaults to warn.
func Root() zerolog.Logger {
	once.Do(func() {
		root = New(ConsoleWriter(os.Stderr), os.Getenv(EnvLevel))
	})
	return root
}

// New builds a timestamped logger writing to w. An empty or unknown level
// falls back to warn.
func New(w io.Writer, level string) zerolog.Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	return l.Level(ParseLevel(level))
}

// ParseLevel maps a level name to a zerolog level, defaulting to warn.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.WarnLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return l
}

// ConsoleWriter returns a human readable writer in the layout used by the CLI.
func ConsoleWriter(out io.Writer) io.Writer {
	w := &zerolog.ConsoleWriter{Out: out, TimeFormat: "2006/01/02 15:04:05.000"}
	w.FormatCaller = func(i interface{}) string {
		s, ok := i.(string)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s >", filepath.Base(s))
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return w
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
