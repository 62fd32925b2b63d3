// Package device opens the audio output the player writes to. Every
// backend is mono float32 and blocks in Write until the samples are queued,
// which is what paces the player loop.
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/drgolem/traction-maze/player"
)

// Backend names.
const (
	PortAudio = "portaudio"
	Oto       = "oto"
	Null      = "null"
)

// ErrUnavailable is returned for a backend that was compiled out.
var ErrUnavailable = errors.New("device: backend not available in this build")

type Options struct {
	Backend string

	// Index selects a PortAudio output device, -1 for the default one.
	Index           int
	SampleRate      int
	FramesPerBuffer int
}

// Info describes one output device.
type Info struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// Open returns the output for opts.Backend.
func Open(opts Options, logger *slog.Logger) (player.Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("device: invalid sample rate %d", opts.SampleRate)
	}
	switch opts.Backend {
	case Null:
		return player.NewNullDevice(opts.SampleRate), nil
	case PortAudio:
		return openPortAudio(opts, logger)
	case Oto:
		return openOto(opts, logger)
	default:
		return nil, fmt.Errorf("device: unknown backend %q", opts.Backend)
	}
}

// OpenOrNull opens opts.Backend and falls back to the null device when it
// cannot be opened.
func OpenOrNull(opts Options, logger *slog.Logger) player.Device {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := Open(opts, logger)
	if err == nil {
		return d
	}
	logger.Warn("audio output unavailable, playing to null device", "backend", opts.Backend, "error", err)
	return player.NewNullDevice(opts.SampleRate)
}

// appendFloat32LE encodes samples as little-endian IEEE 754 into dst.
func appendFloat32LE(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}
