// Package sfx loads the one-shot sound effects. WAV files are decoded once
// at startup into mono float32 buffers at the playback sample rate, so the
// audio loop never converts formats.
package sfx

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-audio/wav"
)

const (
	FanfareFile    = "fanfare.wav"
	WallHitPattern = "wall*.wav"
)

var (
	ErrInvalidWAV     = errors.New("sfx: not a valid WAV file")
	ErrSampleRate     = errors.New("sfx: sample rate mismatch")
	ErrUnsupportedFmt = errors.New("sfx: unsupported sample format")
)

// Load decodes an integer PCM WAV file into mono float32 samples in [-1,1].
// Multi-channel files are averaged down to mono. The file must already be
// at sampleRate.
func Load(path string, sampleRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sfx: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("sfx: decode %s: %w", path, err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 || bitDepth > 32 || dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: %s (format %d, %d bit)", ErrUnsupportedFmt, path, dec.WavAudioFormat, bitDepth)
	}
	if buf.Format.SampleRate != sampleRate {
		return nil, fmt.Errorf("%w: %s is %d Hz, want %d Hz", ErrSampleRate, path, buf.Format.SampleRate, sampleRate)
	}

	channels := max(buf.Format.NumChannels, 1)
	frames := len(buf.Data) / channels
	factor := math.Pow(2, float64(bitDepth-1))
	// 8-bit WAV is unsigned.
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	out := make([]float32, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += buf.Data[i*channels+c] - offset
		}
		v := float64(sum) / float64(channels) / factor
		out[i] = float32(math.Max(-1, math.Min(1, v)))
	}
	return out, nil
}

// Bank holds the loaded effects and satisfies the player's effect source.
type Bank struct {
	fanfare []float32
	walls   [][]float32
	rng     *rand.Rand
}

// LoadBank reads FanfareFile and every WallHitPattern file from dir. A
// missing or broken file is logged and skipped; the player falls back to
// the waveform for an absent effect.
func LoadBank(dir string, sampleRate int, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bank{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}

	fanfare, err := Load(filepath.Join(dir, FanfareFile), sampleRate)
	if err != nil {
		logger.Warn("fanfare unavailable", "error", err)
	} else {
		b.fanfare = fanfare
	}

	paths, _ := filepath.Glob(filepath.Join(dir, WallHitPattern))
	sort.Strings(paths)
	for _, p := range paths {
		s, err := Load(p, sampleRate)
		if err != nil {
			logger.Warn("wall hit sound skipped", "error", err)
			continue
		}
		b.walls = append(b.walls, s)
	}
	logger.Info("sound effects loaded",
		"dir", dir,
		"fanfare", b.fanfare != nil,
		"wall_hits", len(b.walls))
	return b
}

// NewBank builds a bank from already decoded buffers.
func NewBank(fanfare []float32, walls [][]float32, seed uint64) *Bank {
	return &Bank{
		fanfare: fanfare,
		walls:   walls,
		rng:     rand.New(rand.NewPCG(seed, seed)),
	}
}

func (b *Bank) Fanfare() []float32 {
	return b.fanfare
}

// WallHit returns one of the wall hit sounds at random, or nil if none
// loaded. Only the audio worker calls it.
func (b *Bank) WallHit() []float32 {
	if len(b.walls) == 0 {
		return nil
	}
	return b.walls[b.rng.IntN(len(b.walls))]
}

// FanfareDuration is the play time of the fanfare at sampleRate.
func (b *Bank) FanfareDuration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(b.fanfare)) / float64(sampleRate)
}
