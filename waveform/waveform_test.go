package waveform

import (
	"errors"
	"math"
	"testing"

	"github.com/drgolem/traction-maze/state"
)

func TestGenerateScenario200Hz(t *testing.T) {
	buf, err := Generate(44100, 200, 4, state.Up)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(buf) != 4410 {
		t.Errorf("len = %d, want 4410", len(buf))
	}
	if c := Cycles(200); c != 20 {
		t.Errorf("Cycles(200) = %d, want 20", c)
	}
}

func TestLobeStructure(t *testing.T) {
	const (
		rate = 48000
		freq = 100
	)
	period := rate / freq

	for _, n := range []int{3, 4, 5, 7, 10} {
		buf, err := Generate(rate, freq, n, state.Up)
		if err != nil {
			t.Fatalf("n=%d: Generate failed: %v", n, err)
		}

		peaks := make([]float32, n)
		for i := 0; i < period; i++ {
			pos := float64(i) / float64(period) * float64(n)
			lobe := int(pos)
			v := buf[i]
			onBoundary := pos == float64(lobe)

			if lobe == n-1 && !onBoundary {
				if v >= 0 {
					t.Fatalf("n=%d sample %d in last lobe = %f, want negative", n, i, v)
				}
			} else if v < 0 {
				t.Fatalf("n=%d sample %d in lobe %d = %f, want non-negative", n, i, lobe, v)
			}
			if a := float32(math.Abs(float64(v))); a > peaks[lobe] {
				peaks[lobe] = a
			}
		}

		for k, p := range peaks {
			if p < 0.99 {
				t.Errorf("n=%d lobe %d peak %f, want a full lobe", n, k, p)
			}
		}

		negative := 0
		for k := 0; k < n; k++ {
			mid := (2*k + 1) * period / (2 * n)
			if buf[mid] < 0 {
				negative++
			}
		}
		if negative != 1 {
			t.Errorf("n=%d: %d inverted lobes per period, want 1", n, negative)
		}
	}
}

func TestPeriodsRepeat(t *testing.T) {
	buf, err := Generate(48000, 100, 4, state.Up)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	period := 480
	if len(buf)%period != 0 {
		t.Fatalf("len %d not a multiple of period %d", len(buf), period)
	}
	for i := period; i < len(buf); i++ {
		if buf[i] != buf[i-period] {
			t.Fatalf("sample %d = %f differs from one period earlier (%f)", i, buf[i], buf[i-period])
		}
	}
}

func TestCycleAlignment(t *testing.T) {
	tests := []struct {
		rate, freq int
	}{
		{44100, 200},
		{44100, 63},
		{44100, 20},
		{44100, 1000},
		{48000, 100},
		{48000, 250},
		{44100, 441},
	}

	for _, tt := range tests {
		n := Length(tt.rate, tt.freq)
		cycles := Cycles(tt.freq)
		if n*tt.freq != cycles*tt.rate {
			t.Errorf("rate=%d f=%d: %d samples is not %d whole periods", tt.rate, tt.freq, n, cycles)
		}

		buf, err := Generate(tt.rate, tt.freq, 4, state.Up)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(buf) != n {
			t.Errorf("rate=%d f=%d: len = %d, want %d", tt.rate, tt.freq, len(buf), n)
		}
		if buf[0] != 0 {
			t.Errorf("rate=%d f=%d: buffer does not start on a lobe boundary (%f)", tt.rate, tt.freq, buf[0])
		}
	}
}

func TestLengthRoundsToNearestCycle(t *testing.T) {
	// 0.1 s at 63 Hz is 6.3 periods; the buffer holds 6.
	if got := Cycles(63); got != 6 {
		t.Errorf("Cycles(63) = %d, want 6", got)
	}
	if got := Length(44100, 63); got != 4200 {
		t.Errorf("Length(44100, 63) = %d, want 4200", got)
	}
	// 0.1 s at 25 Hz is 2.5 periods; rounds half away from zero.
	if got := Cycles(25); got != 3 {
		t.Errorf("Cycles(25) = %d, want 3", got)
	}
}

func TestDirectionNegates(t *testing.T) {
	up, err := Generate(44100, 150, 5, state.Up)
	if err != nil {
		t.Fatal(err)
	}
	down, err := Generate(44100, 150, 5, state.Down)
	if err != nil {
		t.Fatal(err)
	}
	if len(up) != len(down) {
		t.Fatalf("length mismatch %d vs %d", len(up), len(down))
	}
	for i := range up {
		if down[i] != -up[i] {
			t.Fatalf("sample %d: down %f, want %f", i, down[i], -up[i])
		}
	}
}

func TestGenerateIsPure(t *testing.T) {
	a, err := Generate(44100, 333, 7, state.Down)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(44100, 333, 7, state.Down)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("sample %d differs between calls", i)
		}
	}
}

func TestGenerateRejectsBadParams(t *testing.T) {
	tests := []struct {
		name                  string
		rate, freq, antinodes int
		want                  error
	}{
		{"two antinodes", 44100, 200, 2, ErrTooFewAntinodes},
		{"zero antinodes", 44100, 200, 0, ErrTooFewAntinodes},
		{"zero rate", 0, 200, 4, ErrInvalidParams},
		{"negative frequency", 44100, -1, 4, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.rate, tt.freq, tt.antinodes, state.Up)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCacheReusesBuffer(t *testing.T) {
	c := NewCache()
	k := Key{SampleRate: 44100, Frequency: 200, Direction: state.Up, Antinodes: 4}

	first, err := c.Get(k)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Get(k)
	if err != nil {
		t.Fatal(err)
	}
	if c.Generated() != 1 {
		t.Errorf("Generated = %d after two identical gets, want 1", c.Generated())
	}
	if &first[0] != &second[0] {
		t.Error("cache hit returned a different buffer")
	}

	k.Direction = state.Down
	if _, err := c.Get(k); err != nil {
		t.Fatal(err)
	}
	if c.Generated() != 2 {
		t.Errorf("Generated = %d after key change, want 2", c.Generated())
	}

	// Single entry: going back regenerates.
	k.Direction = state.Up
	if _, err := c.Get(k); err != nil {
		t.Fatal(err)
	}
	if c.Generated() != 3 {
		t.Errorf("Generated = %d, want 3", c.Generated())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	c := NewCache()
	if _, err := c.Get(Key{SampleRate: 44100, Frequency: 200, Antinodes: 2}); err == nil {
		t.Fatal("expected error for two antinodes")
	}
	if c.Generated() != 0 {
		t.Errorf("Generated = %d, want 0", c.Generated())
	}
}

func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Generate(44100, 63, 4, state.Up); err != nil {
			b.Fatal(err)
		}
	}
}
