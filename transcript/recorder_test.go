package transcript

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Show("Driver: ")
	r.Show("Alice")
	r.Newline()

	want := []Event{
		{Kind: KindShow, Text: "Driver: "},
		{Kind: KindShow, Text: "Alice"},
		{Kind: KindNewline},
	}
	if !reflect.DeepEqual(r.Events(), want) {
		t.Errorf("events = %+v, want %+v", r.Events(), want)
	}

	l := r.Log("Main.st")
	if l.Version != LogVersion || l.Source != "Main.st" || len(l.Events) != 3 {
		t.Errorf("log = %+v", l)
	}
}

func TestMarshalCanonical(t *testing.T) {
	l := &Log{
		Version: 1,
		Events: []Event{
			{Kind: KindShow, Text: "hi"},
			{Kind: KindNewline},
		},
	}

	data, err := Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// {1: 1, 3: [{1: 1, 2: "hi"}, {1: 2}]}
	want := []byte{
		0xa2,
		0x01, 0x01,
		0x03, 0x82,
		0xa2, 0x01, 0x01, 0x02, 0x62, 'h', 'i',
		0xa1, 0x01, 0x02,
	}
	if !bytes.Equal(data, want) {
		t.Errorf("Marshal = % x, want % x", data, want)
	}

	again, err := Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("Marshal is not deterministic")
	}
}

func TestMarshalReplay(t *testing.T) {
	var rec Recorder
	var direct Buffer
	sink := Tee(&rec, &direct)
	sink.Show("=== PREMIUM RIDE ===")
	sink.Newline()
	sink.Show("Fare: $")
	sink.Show("35.0")
	sink.Newline()

	data, err := Marshal(rec.Log("demo"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	l, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if l.Source != "demo" {
		t.Errorf("source = %q", l.Source)
	}

	var replayed Buffer
	if err := Replay(l, &replayed); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if replayed.String() != direct.String() {
		t.Errorf("replayed %q, want %q", replayed.String(), direct.String())
	}
}

func TestUnmarshalVersion(t *testing.T) {
	data, err := cbor.Marshal(&Log{Version: LogVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Unmarshal err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestReplayUnknownKind(t *testing.T) {
	l := &Log{Version: LogVersion, Events: []Event{{Kind: KindShow, Text: "a"}, {Kind: Kind(9)}}}

	var b Buffer
	if err := Replay(l, &b); err == nil {
		t.Error("expected error for unknown kind")
	}
	if b.String() != "a" {
		t.Errorf("events before the bad one = %q, want a", b.String())
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindShow:    "show",
		KindNewline: "newline",
		Kind(7):     "Kind(7)",
	}
	for k, want := range tests {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint8(k), k.String(), want)
		}
	}
}
