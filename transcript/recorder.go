package transcript

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Kind tags an Event.
type Kind uint8

const (
	KindShow Kind = iota + 1
	KindNewline
)

func (k Kind) String() string {
	switch k {
	case KindShow:
		return "show"
	case KindNewline:
		return "newline"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Event is one recorded output event.
type Event struct {
	Kind Kind   `cbor:"1,keyasint"`
	Text string `cbor:"2,keyasint,omitempty"`
}

// Log is a recorded run: the events in order plus a label naming what
// produced them.
type Log struct {
	Version int     `cbor:"1,keyasint"`
	Source  string  `cbor:"2,keyasint,omitempty"`
	Events  []Event `cbor:"3,keyasint"`
}

// LogVersion is the encoding version written by Marshal.
const LogVersion = 1

// ErrUnsupportedVersion is returned when decoding a log written by a newer
// encoder.
var ErrUnsupportedVersion = errors.New("transcript: unsupported log version")

// Recorder is a Sink that keeps every event.
type Recorder struct {
	events []Event
}

// Show records a show event.
func (r *Recorder) Show(text string) {
	r.events = append(r.events, Event{Kind: KindShow, Text: text})
}

// Newline records a newline event.
func (r *Recorder) Newline() {
	r.events = append(r.events, Event{Kind: KindNewline})
}

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	return r.events
}

// Log packages the recorded events.
func (r *Recorder) Log(source string) *Log {
	return &Log{Version: LogVersion, Source: source, Events: r.events}
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("transcript: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Log to canonical CBOR bytes.
func Marshal(l *Log) ([]byte, error) {
	return cborEncMode.Marshal(l)
}

// Unmarshal deserializes a Log from CBOR bytes.
func Unmarshal(data []byte) (*Log, error) {
	var l Log
	if err := cbor.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("transcript: unmarshal log: %w", err)
	}
	if l.Version > LogVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, l.Version)
	}
	return &l, nil
}

// Replay sends every event of l to s.
func Replay(l *Log, s Sink) error {
	for i, e := range l.Events {
		switch e.Kind {
		case KindShow:
			s.Show(e.Text)
		case KindNewline:
			s.Newline()
		default:
			return fmt.Errorf("transcript: event %d: unknown kind %d", i, e.Kind)
		}
	}
	return nil
}
