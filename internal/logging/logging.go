// Package logging builds the zerolog logger shared by the service and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
}

// Validate checks that Level and Format are understood.
func (o Options) Validate() error {
	if _, err := parseLevel(o.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "", FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (want %s or %s)", o.Format, FormatConsole, FormatJSON)
	}
}

// New returns a logger for o. Writer defaults to stderr.
func New(o Options) (zerolog.Logger, error) {
	if err := o.Validate(); err != nil {
		return zerolog.Nop(), err
	}
	level, _ := parseLevel(o.Level)

	w := o.Writer
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(strings.TrimSpace(o.Format), FormatJSON) {
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !isTerminal(w)}
	return zerolog.New(console).Level(level).With().Timestamp().Logger(), nil
}

func parseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
