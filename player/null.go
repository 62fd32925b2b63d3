package player

import (
	"errors"
	"sync/atomic"
	"time"
)

var ErrDeviceClosed = errors.New("player: device closed")

// NullDevice discards samples, sleeping for their play time so the loop runs
// at the same pace as on real hardware. It stands in when no audio backend is
// available.
type NullDevice struct {
	sampleRate int
	closed     atomic.Bool
	running    atomic.Bool
	samples    atomic.Uint64
}

func NewNullDevice(sampleRate int) *NullDevice {
	return &NullDevice{sampleRate: sampleRate}
}

func (d *NullDevice) Start() error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	d.running.Store(true)
	return nil
}

func (d *NullDevice) Stop() error {
	d.running.Store(false)
	return nil
}

func (d *NullDevice) Write(samples []float32) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	d.samples.Add(uint64(len(samples)))
	if d.sampleRate > 0 {
		time.Sleep(time.Duration(len(samples)) * time.Second / time.Duration(d.sampleRate))
	}
	return nil
}

func (d *NullDevice) Close() error {
	d.closed.Store(true)
	d.running.Store(false)
	return nil
}

// Samples counts everything written since creation.
func (d *NullDevice) Samples() uint64 {
	return d.samples.Load()
}
