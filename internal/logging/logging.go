// Package logging provides taskflow's diagnostic logging channel. Logging
// is opt-in: the zero value is a disabled logger that discards everything,
// matching the contract that the engine never logs to stdout by default.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger so engine code can log through a named
// channel without depending on zerolog's API directly in every package.
type Logger struct {
	z zerolog.Logger
}

// Disabled returns a Logger that discards every event. This is the default
// bound into a Pool that does not opt in to logging.
func Disabled() Logger {
	return Logger{z: zerolog.Nop()}
}

// New returns a Logger writing pretty console output to w at the given
// level, for callers that do opt in (typically the demo CLI).
func New(w io.Writer, level zerolog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	z := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
	return Logger{z: z}
}

// Named scopes the logger under a component name, mirroring zerolog's
// With().Str("component", name) idiom used throughout the channel.
func (l Logger) Named(component string) Logger {
	return Logger{z: l.z.With().Str("component", component).Logger()}
}

func (l Logger) Debug() *zerolog.Event { return l.z.Debug() }
func (l Logger) Info() *zerolog.Event  { return l.z.Info() }
func (l Logger) Warn() *zerolog.Event  { return l.z.Warn() }
func (l Logger) Error() *zerolog.Event { return l.z.Error() }
