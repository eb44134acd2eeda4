// Package logging builds the zerolog logger shared by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger at the given level. Development gets a console
// writer; every other environment logs JSON lines.
func New(level, environment string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level, environment)
}

// NewWithWriter is New with an explicit output
func NewWithWriter(w io.Writer, level, environment string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
