package input

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"
	"github.com/tarm/serial"

	"github.com/drgolem/traction-maze/gpio"
	"github.com/drgolem/traction-maze/state"
)

const (
	DefaultAnalogInterval = 200 * time.Millisecond
	DefaultAnalogCenter   = 0.5
	DefaultZeroRange      = 0.02

	serialRingSize = 4096
	// A frame longer than this without a newline is garbage.
	maxFrameLen = 64
)

// AnalogConfig describes how a stick reading maps to traction.
type AnalogConfig struct {
	Interval  time.Duration
	Center    float64
	ZeroRange float64
}

func DefaultAnalogConfig() AnalogConfig {
	return AnalogConfig{
		Interval:  DefaultAnalogInterval,
		Center:    DefaultAnalogCenter,
		ZeroRange: DefaultZeroRange,
	}
}

// Traction maps a normalized stick reading in [0,1] to a direction and a
// volume. Inside the dead zone around the center ok is false and the volume
// is zero; the direction is then meaningless.
func (c AnalogConfig) Traction(reading float64) (dir state.Direction, volume float64, ok bool) {
	dev := reading - c.Center
	mag := math.Abs(dev)
	if mag <= c.ZeroRange {
		return state.Up, 0, false
	}
	span := 0.5 - c.ZeroRange
	if span <= 0 {
		return state.Up, 0, false
	}
	volume = math.Min(1, (mag-c.ZeroRange)/span)
	if dev > 0 {
		return state.Up, volume, true
	}
	return state.Down, volume, true
}

func applyTraction(shared *state.Shared, dir state.Direction, volume float64, ok bool) {
	if ok {
		shared.Signal.SetDirection(dir)
	}
	shared.Player.SetVolume(volume)
}

// OpenSerial opens the stick controller port. The read timeout keeps the
// reader from blocking forever so it can notice shutdown.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return serialPort{port}, nil
}

// serialPort turns the read timeout, which tarm reports as io.EOF with no
// data, into an empty read.
type serialPort struct {
	*serial.Port
}

func (p serialPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

// SerialAnalog reads newline terminated frames from the stick controller.
// A frame is either a float in [0,1] or a single button marker: "p" press,
// "l" long press, "r" release.
//
// Architecture:
//
//	reader goroutine            ring buffer            sampler (every Interval)
//	port.Read (blocking) ──▶   raw bytes      ──▶     reassemble lines, apply latest
type SerialAnalog struct {
	cfg      AnalogConfig
	src      io.Reader
	ring     *ringbuffer.RingBuffer
	shared   *state.Shared
	dispatch *Dispatcher
	logger   *slog.Logger

	pending []byte

	bytesIn   atomic.Uint64
	overflows atomic.Uint64
	frames    atomic.Uint64
	malformed atomic.Uint64
}

func NewSerialAnalog(cfg AnalogConfig, src io.Reader, shared *state.Shared, dispatch *Dispatcher, logger *slog.Logger) *SerialAnalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialAnalog{
		cfg:      cfg,
		src:      src,
		ring:     ringbuffer.New(serialRingSize),
		shared:   shared,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Run samples the stick until the application stops. The source is closed on
// return when it is an io.Closer.
func (a *SerialAnalog) Run(ctx context.Context) error {
	if c, ok := a.src.(io.Closer); ok {
		defer c.Close()
	}

	readErr := make(chan error, 1)
	go func() {
		readErr <- a.pump()
	}()

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for a.shared.App.Running() {
		select {
		case <-ctx.Done():
			return nil
		case <-a.shared.App.Done():
			return nil
		case err := <-readErr:
			a.poll()
			if err != nil && a.shared.App.Running() {
				return fmt.Errorf("serial read: %w", err)
			}
			return nil
		case <-ticker.C:
			a.poll()
		}
	}
	return nil
}

// pump moves bytes from the port into the ring until the port fails or the
// application stops. A full ring drops the excess; the sampler only needs the
// latest frame.
func (a *SerialAnalog) pump() error {
	buf := make([]byte, 128)
	for a.shared.App.Running() {
		n, err := a.src.Read(buf)
		if n > 0 {
			a.bytesIn.Add(uint64(n))
			if w, _ := a.ring.Write(buf[:n]); w < n {
				a.overflows.Add(1)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
	return nil
}

// poll drains the ring, handles every complete frame and applies the most
// recent well-formed reading.
func (a *SerialAnalog) poll() {
	if n := a.ring.Length(); n > 0 {
		chunk := make([]byte, n)
		got, _ := a.ring.TryRead(chunk)
		a.pending = append(a.pending, chunk[:got]...)
	}

	latest, have := 0.0, false
	for {
		i := bytes.IndexByte(a.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(a.pending[:i])
		a.pending = a.pending[i+1:]
		if len(line) == 0 {
			continue
		}
		a.frames.Add(1)
		if v, ok := a.frame(line); ok {
			latest, have = v, true
		}
	}
	if len(a.pending) > maxFrameLen {
		a.malformed.Add(1)
		a.logger.Debug("dropping unterminated serial frame", "len", len(a.pending))
		a.pending = a.pending[:0]
	}
	// Keep the remainder from growing the backing array forever.
	a.pending = append([]byte(nil), a.pending...)

	if have {
		dir, vol, ok := a.cfg.Traction(latest)
		applyTraction(a.shared, dir, vol, ok)
	}
}

func (a *SerialAnalog) frame(line []byte) (float64, bool) {
	switch string(line) {
	case "p":
		a.dispatch.Apply(CmdTractionChange)
		return 0, false
	case "l":
		a.dispatch.Apply(CmdTogglePlay)
		return 0, false
	case "r":
		return 0, false
	}
	v, err := strconv.ParseFloat(string(line), 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
		a.malformed.Add(1)
		a.logger.Debug("malformed serial frame", "frame", string(line))
		return 0, false
	}
	return v, true
}

// SerialStats is a snapshot of the adapter counters.
type SerialStats struct {
	BytesIn   uint64
	Overflows uint64
	Frames    uint64
	Malformed uint64
}

func (a *SerialAnalog) Stats() SerialStats {
	return SerialStats{
		BytesIn:   a.bytesIn.Load(),
		Overflows: a.overflows.Load(),
		Frames:    a.frames.Load(),
		Malformed: a.malformed.Load(),
	}
}

// ParallelAnalog reads a 3-bit offset binary stick position from three
// active-high digital lines, least significant bit first. Raw 0..7 maps to
// -4..3.
type ParallelAnalog struct {
	interval time.Duration
	bits     [3]gpio.Input
	shared   *state.Shared
	logger   *slog.Logger
}

func NewParallelAnalog(interval time.Duration, bits [3]gpio.Input, shared *state.Shared, logger *slog.Logger) *ParallelAnalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParallelAnalog{interval: interval, bits: bits, shared: shared, logger: logger}
}

// ParallelTraction maps a position in -4..3 to traction. Positive positions
// pull up with volume v/3; positions below -1 pull down with volume
// (-v-1)/3. The rest is the neutral band.
func ParallelTraction(v int) (dir state.Direction, volume float64, ok bool) {
	switch {
	case v > 0:
		return state.Up, math.Min(1, float64(v)/3), true
	case v < -1:
		return state.Down, math.Min(1, float64(-v-1)/3), true
	default:
		return state.Up, 0, false
	}
}

// read returns the position, or false when any line is unknown.
func (p *ParallelAnalog) read() (int, bool) {
	v := 0
	for i, in := range p.bits {
		if in == nil {
			return 0, false
		}
		lvl, err := in.Read()
		if err != nil || lvl == gpio.Unknown {
			return 0, false
		}
		if lvl == gpio.Active {
			v |= 1 << i
		}
	}
	return v - 4, true
}

func (p *ParallelAnalog) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for p.shared.App.Running() {
		select {
		case <-ctx.Done():
			return nil
		case <-p.shared.App.Done():
			return nil
		case <-ticker.C:
			v, ok := p.read()
			if !ok {
				continue
			}
			dir, vol, moved := ParallelTraction(v)
			applyTraction(p.shared, dir, vol, moved)
		}
	}
	return nil
}
