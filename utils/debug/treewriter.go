// Package debug has helpers to render nested structures as indented text.
package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TreeWriter writes indented listing, two spaces per depth level. First write
// error sticks and makes all subsequent calls no-ops.
type TreeWriter struct {
	w     io.Writer
	err   error
	lines int
}

func NewTreeWriter(w io.Writer) *TreeWriter {
	return &TreeWriter{w: w}
}

// Err returns first error encountered while writing.
func (tw *TreeWriter) Err() error {
	return tw.err
}

// Lines returns number of lines written so far.
func (tw *TreeWriter) Lines() int {
	return tw.lines
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.emit(depth, fmt.Sprintf(format, args...))
}

func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.emit(depth, label+": "+encodeText(value))
}

func (tw *TreeWriter) emit(depth int, s string) {
	if tw.err != nil {
		return
	}
	var b strings.Builder
	b.Grow(2*depth + len(s) + 1)
	for range depth {
		b.WriteString("  ")
	}
	b.WriteString(s)
	b.WriteByte('\n')
	if _, err := io.WriteString(tw.w, b.String()); err != nil {
		tw.err = err
		return
	}
	tw.lines++
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
