// Package sysutil configures process-wide concerns shared by every mdt
// command: the global zerolog level and the root logger.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level from LOG_LEVEL. Any name zerolog
// knows is accepted, plus "warning". Blank or unknown names mean info.
func SetLogLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

// SetupLogger installs the root logger on w (stderr when nil) as log.Logger.
// pretty switches to the console format used on a developer terminal.
func SetupLogger(level string, pretty bool, w io.Writer) zerolog.Logger {
	SetLogLevel(level)
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "mdt").Logger()
	return log.Logger
}

// FirstNonEmpty returns the first value that is not blank, trimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
