package device

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/drgolem/traction-maze/player"
)

func TestOpenNull(t *testing.T) {
	d, err := Open(Options{Backend: Null, SampleRate: 44100}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if _, ok := d.(*player.NullDevice); !ok {
		t.Errorf("Open(null) = %T", d)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown backend", Options{Backend: "alsa", SampleRate: 44100}},
		{"zero rate", Options{Backend: Null}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d, err := Open(tt.opts, nil); err == nil {
				d.Close()
				t.Error("Open succeeded")
			}
		})
	}
}

func TestOpenOrNullFallsBack(t *testing.T) {
	d := OpenOrNull(Options{Backend: "alsa", SampleRate: 8000}, nil)
	defer d.Close()
	if _, ok := d.(*player.NullDevice); !ok {
		t.Errorf("fallback = %T", d)
	}
}

func TestAppendFloat32LE(t *testing.T) {
	in := []float32{0, 1, -0.5}
	buf := appendFloat32LE(nil, in)
	if len(buf) != 4*len(in) {
		t.Fatalf("len = %d", len(buf))
	}
	for i, want := range in {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		if got != want {
			t.Errorf("sample %d = %v, want %v", i, got, want)
		}
	}
	if buf[4*1+3] != 0x3f || buf[4*1+2] != 0x80 {
		t.Errorf("1.0 encoded as % x", buf[4:8])
	}
}
