// Package log configures the global zerolog logger and provides a step
// logger for multi-stage commands.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Output formats accepted by Setup.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Setup points the global logger at w with the given level. The auto format
// writes human-readable output when w is a terminal and JSON otherwise. A
// nil w means stderr.
func Setup(level, format string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case FormatConsole:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	case FormatJSON:
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	case FormatAuto, "":
		if isTerminal(w) {
			return Setup(level, FormatConsole, w)
		}
		return Setup(level, FormatJSON, w)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
