//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}

// IsTerminal reports whether stream is attached to a terminal, progress
// indicators are only drawn there.
func IsTerminal(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
