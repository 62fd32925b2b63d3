//go:build !headless

package device

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/drgolem/traction-maze/player"
)

// oto allows one context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoRate int
)

func otoContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx, otoRate = ctx, sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, errors.New("device: oto context already open at another sample rate")
	}
	return otoCtx, nil
}

// otoDevice feeds the oto mixer through a pipe. Write blocks until the
// mixer has read the bytes.
type otoDevice struct {
	player *oto.Player
	pw     *io.PipeWriter
	buf    []byte
	closed bool
}

func openOto(opts Options, logger *slog.Logger) (player.Device, error) {
	ctx, err := otoContext(opts.SampleRate)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	p := ctx.NewPlayer(pr)
	if opts.FramesPerBuffer > 0 {
		p.SetBufferSize(opts.FramesPerBuffer * 4)
	}
	logger.Info("audio output", "backend", Oto, "samplerate", opts.SampleRate, "frames", opts.FramesPerBuffer)
	return &otoDevice{player: p, pw: pw}, nil
}

func (d *otoDevice) Start() error {
	if d.closed {
		return io.ErrClosedPipe
	}
	if !d.player.IsPlaying() {
		d.player.Play()
	}
	return nil
}

func (d *otoDevice) Stop() error {
	d.player.Pause()
	return nil
}

func (d *otoDevice) Write(samples []float32) error {
	d.buf = appendFloat32LE(d.buf[:0], samples)
	_, err := d.pw.Write(d.buf)
	return err
}

func (d *otoDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return errors.Join(d.pw.Close(), d.player.Close())
}
