// Package transcript carries interpreter output: the Sink the evaluator
// writes to, console and in-memory sinks, and a recorder whose event log
// can be encoded and replayed.
package transcript

import (
	"io"
	"strings"
)

// Sink receives output events in order. Implementations never fail; a
// writer that errors keeps the first error for the caller to inspect.
type Sink interface {
	Show(text string)
	Newline()
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Show(string) {}
func (discard) Newline()    {}

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer writes events to an io.Writer, one "\n" per Newline.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter creates a sink over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Show writes text verbatim.
func (w *Writer) Show(text string) {
	w.write(text)
}

// Newline writes a line break.
func (w *Writer) Newline() {
	w.write("\n")
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

// ---------------------------------------------------------------------------
// Buffer
// ---------------------------------------------------------------------------

// Buffer accumulates output in memory.
type Buffer struct {
	sb strings.Builder
}

// Show appends text.
func (b *Buffer) Show(text string) {
	b.sb.WriteString(text)
}

// Newline appends a line break.
func (b *Buffer) Newline() {
	b.sb.WriteByte('\n')
}

// String returns everything written so far.
func (b *Buffer) String() string {
	return b.sb.String()
}

// Lines returns the output split on line breaks, without a trailing empty
// line.
func (b *Buffer) Lines() []string {
	s := strings.TrimSuffix(b.sb.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// ---------------------------------------------------------------------------
// Tee
// ---------------------------------------------------------------------------

// Tee forwards every event to each sink in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Show(text string) {
	for _, s := range t {
		s.Show(text)
	}
}

func (t tee) Newline() {
	for _, s := range t {
		s.Newline()
	}
}
