// Command traction-maze runs the wire maze controller: the traction cue on
// the audio output, the course sensors, the indicator LED and the terminal
// front end.
//
// Usage:
//
//	traction-maze [flags]
//	traction-maze -list
//
// Every flag has a TRACTION_* environment variable; see package config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/traction-maze/app"
	"github.com/drgolem/traction-maze/config"
	"github.com/drgolem/traction-maze/console"
	"github.com/drgolem/traction-maze/device"
	"github.com/drgolem/traction-maze/feedback"
	"github.com/drgolem/traction-maze/game"
	"github.com/drgolem/traction-maze/gpio"
	"github.com/drgolem/traction-maze/input"
	"github.com/drgolem/traction-maze/player"
	"github.com/drgolem/traction-maze/result"
	"github.com/drgolem/traction-maze/sfx"
	"github.com/drgolem/traction-maze/state"
)

func main() {
	listDevices := flag.Bool("list", false, "List audio output devices and exit")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traction-maze [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Drives the wire maze: traction cue audio, course sensors, LED and status line.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  traction-maze -list")
		fmt.Fprintln(os.Stderr, "  traction-maze -audio oto -gpio=false")
		fmt.Fprintln(os.Stderr, "  traction-maze -analog serial -serial /dev/ttyACM0 -name alice")
	}

	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(2)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stopped with error", "error", err)
		os.Exit(1)
	}
}

func printDevices() error {
	devices, err := device.List()
	if err != nil {
		return err
	}
	fmt.Println("Available Output Devices:")
	fmt.Println("=========================")
	for _, d := range devices {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Printf("%s [%d] %s (%d ch, %.0f Hz)\n", mark, d.Index, d.Name, d.Channels, d.SampleRate)
	}
	return nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shared := state.New(cfg.StateOptions())
	nav := game.NewNavigator(shared)
	dispatch := input.NewDispatcher(shared, nav)
	sup := app.NewSupervisor(shared.App, logger)
	workerLog := func(name string) *slog.Logger { return logger.With("worker", name) }

	bank := sfx.LoadBank(cfg.SoundDir, cfg.SampleRate, workerLog("sfx"))
	fb := cfg.Feedback()
	if fb.GoalBlink == 0 {
		fb.GoalBlink = time.Duration(bank.FanfareDuration(cfg.SampleRate) * float64(time.Second))
	}

	out := device.OpenOrNull(device.Options{
		Backend:         cfg.AudioBackend,
		Index:           cfg.AudioDevice,
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}, workerLog("audio"))
	audio := player.New(shared, out, bank, workerLog("audio"))
	sup.Add("audio", audio)

	lines := openLines(cfg, logger)
	sup.Add("game", game.NewController(cfg.Game(), shared, nav, lines.game, workerLog("game")))
	sup.Add("led", feedback.NewLoop(fb, shared, lines.led, workerLog("led")))
	if lines.toggle != nil {
		sup.Add("switch", input.NewSwitch(lines.toggle, cfg.SwitchDebounce, shared, dispatch, workerLog("switch")))
	}

	switch cfg.AnalogSource {
	case config.AnalogSerial:
		port, err := input.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			logger.Warn("analog stick unavailable", "port", cfg.SerialPort, "error", err)
			break
		}
		sup.Add("analog", input.NewSerialAnalog(cfg.Analog(), port, shared, dispatch, workerLog("analog")))
	case config.AnalogParallel:
		if bits, ok := openParallel(cfg, logger); ok {
			sup.Add("analog", input.NewParallelAnalog(cfg.AnalogInterval, bits, shared, workerLog("analog")))
		}
	}

	if cfg.Keyboard {
		kb := input.NewKeyboard(shared, dispatch, workerLog("keyboard"))
		if err := kb.Open(); err != nil {
			logger.Warn("keyboard unavailable", "error", err)
		} else {
			sup.Add("keyboard", kb)
		}
	}

	var store *result.Store
	if cfg.ResultsPath != "" {
		store = result.NewStore(cfg.ResultsPath, cfg.Penalty)
	}
	// The console also records results, so it runs even without a status line.
	fd := -1
	if cfg.Console {
		fd = int(os.Stdout.Fd())
	}
	sup.Add("console", console.New(shared, store, cfg.PlayerName, cfg.Penalty, os.Stdout, fd, workerLog("console")))

	logger.Info("traction maze starting",
		"workers", sup.Names(),
		"frequency", shared.Signal.Frequency(),
		"antinodes", shared.Signal.Antinodes(),
		"direction", shared.Signal.Direction(),
		"volume", shared.Player.Volume())

	err := sup.Run(ctx)

	st := audio.Stats()
	logger.Info("traction maze stopped",
		"writes", st.Writes,
		"samples", st.Samples,
		"effects", st.EffectsPlayed,
		"generated", st.Generated,
		"max_write", st.MaxWrite,
		"avg_write", st.AvgWrite)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type lineSet struct {
	game   game.Lines
	led    gpio.Output
	toggle gpio.EdgeWaiter
}

// openLines exports the sensor, switch and LED pins. A line that cannot be
// opened is logged and left out: sensors read Unknown and the LED falls back
// to an in-memory line. With GPIO disabled every sensor is an idle memory
// line so the keyboard can still drive a session.
func openLines(cfg config.Config, logger *slog.Logger) lineSet {
	if !cfg.GPIO {
		return lineSet{
			game: game.Lines{
				Course1: gpio.NewLine(gpio.Inactive),
				Course2: gpio.NewLine(gpio.Inactive),
				Goal:    gpio.NewLine(gpio.Inactive),
				Start:   gpio.NewLine(gpio.Inactive),
			},
			led: gpio.NewLine(gpio.Inactive),
		}
	}

	sys := gpio.Sysfs{Root: cfg.GPIORoot}
	openInput := func(name string, pin int) *gpio.SysfsLine {
		if pin < 0 {
			return nil
		}
		l, err := sys.Input(pin, true)
		if err != nil {
			logger.Warn("gpio input unavailable", "line", name, "pin", pin, "error", err)
			return nil
		}
		return l
	}

	var set lineSet
	// Nil *SysfsLine values must not be stored in the interfaces.
	if l := openInput("course1", cfg.Course1Pin); l != nil {
		set.game.Course1 = l
	}
	if l := openInput("course2", cfg.Course2Pin); l != nil {
		set.game.Course2 = l
	}
	if l := openInput("goal", cfg.GoalPin); l != nil {
		set.game.Goal = l
	}
	if l := openInput("start", cfg.StartPin); l != nil {
		set.game.Start = l
	}
	if l := openInput("switch", cfg.SwitchPin); l != nil {
		set.toggle = l
	}

	set.led = gpio.NewLine(gpio.Inactive)
	if cfg.LEDPin >= 0 {
		if l, err := sys.Output(cfg.LEDPin); err != nil {
			logger.Warn("gpio output unavailable", "line", "led", "pin", cfg.LEDPin, "error", err)
		} else {
			set.led = l
		}
	}
	return set
}

func openParallel(cfg config.Config, logger *slog.Logger) ([3]gpio.Input, bool) {
	var bits [3]gpio.Input
	if !cfg.GPIO {
		logger.Warn("parallel analog stick needs gpio")
		return bits, false
	}
	sys := gpio.Sysfs{Root: cfg.GPIORoot}
	for i, pin := range cfg.ParallelPins {
		l, err := sys.Input(pin, false)
		if err != nil {
			logger.Warn("analog stick unavailable", "pin", pin, "error", err)
			return bits, false
		}
		bits[i] = l
	}
	return bits, true
}
