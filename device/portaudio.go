//go:build !headless

package device

import (
	"errors"
	"log/slog"

	"github.com/drgolem/traction-maze/player"
	"github.com/drgolem/traction-maze/portaudio"
)

type paDevice struct {
	stream  *portaudio.OutputStream
	started bool
	closed  bool
}

func openPortAudio(opts Options, logger *slog.Logger) (player.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	stream, err := portaudio.OpenOutputStream(opts.Index, 1, float64(opts.SampleRate), opts.FramesPerBuffer)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	logger.Info("audio output",
		"backend", PortAudio,
		"device", stream.Device().Name,
		"version", portaudio.GetVersionText(),
		"samplerate", opts.SampleRate,
		"frames", opts.FramesPerBuffer)
	return &paDevice{stream: stream}, nil
}

func (d *paDevice) Start() error {
	if d.started {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return err
	}
	d.started = true
	return nil
}

func (d *paDevice) Stop() error {
	if !d.started {
		return nil
	}
	d.started = false
	return d.stream.Stop()
}

func (d *paDevice) Write(samples []float32) error {
	return d.stream.WriteFloat32(samples)
}

func (d *paDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var errs []error
	if d.started {
		d.started = false
		errs = append(errs, d.stream.Stop())
	}
	errs = append(errs, d.stream.Close(), portaudio.Terminate())
	return errors.Join(errs...)
}

// List returns the PortAudio output devices.
func List() ([]Info, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, err := portaudio.OutputDevices()
	if err != nil {
		return nil, err
	}
	def := -1
	if d, err := portaudio.DefaultOutputDevice(); err == nil {
		def = d.Index
	}
	out := make([]Info, 0, len(devices))
	for _, d := range devices {
		out = append(out, Info{
			Index:      d.Index,
			Name:       d.Name,
			Channels:   d.MaxOutputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    d.Index == def,
		})
	}
	return out, nil
}
