// Package config loads the traction maze settings from TRACTION_*
// environment variables and command line flags. Flags override the
// environment, which overrides the defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/drgolem/traction-maze/feedback"
	"github.com/drgolem/traction-maze/game"
	"github.com/drgolem/traction-maze/input"
	"github.com/drgolem/traction-maze/state"
)

// Audio backends.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
	BackendNull      = "null"
)

// Analog stick sources.
const (
	AnalogNone     = "none"
	AnalogSerial   = "serial"
	AnalogParallel = "parallel"
)

// Config holds every tunable of the controller. A pin of -1 disables the
// line.
type Config struct {
	LogLevel string `env:"TRACTION_LOG_LEVEL" envDefault:"info"`

	AudioBackend    string `env:"TRACTION_AUDIO_BACKEND" envDefault:"portaudio"`
	AudioDevice     int    `env:"TRACTION_AUDIO_DEVICE" envDefault:"-1"`
	FramesPerBuffer int    `env:"TRACTION_FRAMES_PER_BUFFER" envDefault:"1024"`
	SampleRate      int    `env:"TRACTION_SAMPLE_RATE" envDefault:"44100"`

	Frequency int     `env:"TRACTION_FREQUENCY" envDefault:"63"`
	Antinodes int     `env:"TRACTION_ANTINODES" envDefault:"4"`
	Direction string  `env:"TRACTION_DIRECTION" envDefault:"up"`
	Volume    float64 `env:"TRACTION_VOLUME" envDefault:"0.5"`
	Paused    bool    `env:"TRACTION_PAUSED"`

	Keyboard bool `env:"TRACTION_KEYBOARD" envDefault:"true"`
	Console  bool `env:"TRACTION_CONSOLE" envDefault:"true"`

	AnalogSource   string        `env:"TRACTION_ANALOG" envDefault:"none"`
	AnalogInterval time.Duration `env:"TRACTION_ANALOG_INTERVAL" envDefault:"200ms"`
	ZeroRange      float64       `env:"TRACTION_ZERO_RANGE" envDefault:"0.02"`
	SerialPort     string        `env:"TRACTION_SERIAL_PORT"`
	SerialBaud     int           `env:"TRACTION_SERIAL_BAUD" envDefault:"115200"`
	ParallelPins   []int         `env:"TRACTION_PARALLEL_PINS" envDefault:"21,20,16" envSeparator:","`

	GPIO       bool   `env:"TRACTION_GPIO" envDefault:"true"`
	GPIORoot   string `env:"TRACTION_GPIO_ROOT" envDefault:"/sys/class/gpio"`
	Course1Pin int    `env:"TRACTION_PIN_COURSE1" envDefault:"26"`
	Course2Pin int    `env:"TRACTION_PIN_COURSE2" envDefault:"6"`
	GoalPin    int    `env:"TRACTION_PIN_GOAL" envDefault:"13"`
	StartPin   int    `env:"TRACTION_PIN_START" envDefault:"19"`
	SwitchPin  int    `env:"TRACTION_PIN_SWITCH" envDefault:"17"`
	LEDPin     int    `env:"TRACTION_PIN_LED" envDefault:"14"`

	SwitchDebounce         time.Duration `env:"TRACTION_SWITCH_DEBOUNCE" envDefault:"500ms"`
	PollInterval           time.Duration `env:"TRACTION_POLL_INTERVAL" envDefault:"20ms"`
	InvincibleInterval     time.Duration `env:"TRACTION_INVINCIBLE_INTERVAL" envDefault:"200ms"`
	GoalDetectionDuration  time.Duration `env:"TRACTION_GOAL_DWELL" envDefault:"500ms"`
	StartDetectionDuration time.Duration `env:"TRACTION_START_DWELL" envDefault:"500ms"`

	CrashBlink  time.Duration `env:"TRACTION_CRASH_BLINK" envDefault:"500ms"`
	CrashPeriod time.Duration `env:"TRACTION_CRASH_PERIOD" envDefault:"100ms"`
	GoalBlink   time.Duration `env:"TRACTION_GOAL_BLINK" envDefault:"9300ms"`
	GoalPeriod  time.Duration `env:"TRACTION_GOAL_PERIOD" envDefault:"300ms"`

	SoundDir    string  `env:"TRACTION_SOUND_DIR" envDefault:"sounds"`
	ResultsPath string  `env:"TRACTION_RESULTS" envDefault:"results.csv"`
	PlayerName  string  `env:"TRACTION_PLAYER" envDefault:"player"`
	Penalty     float64 `env:"TRACTION_PENALTY" envDefault:"5"`
}

// ParseConfig loads the environment into a Config and then applies flags
// from args.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	fs.StringVar(&cfg.AudioBackend, "audio", cfg.AudioBackend, "Audio backend (portaudio, oto, null)")
	fs.IntVar(&cfg.AudioDevice, "device", cfg.AudioDevice, "PortAudio output device index, -1 for the default device")
	fs.IntVar(&cfg.FramesPerBuffer, "buffer", cfg.FramesPerBuffer, "Frames per audio buffer")
	fs.IntVar(&cfg.SampleRate, "samplerate", cfg.SampleRate, "Sample rate in Hz")

	fs.IntVar(&cfg.Frequency, "freq", cfg.Frequency, "Initial traction frequency in Hz")
	fs.IntVar(&cfg.Antinodes, "antinodes", cfg.Antinodes, "Initial antinode count")
	fs.StringVar(&cfg.Direction, "direction", cfg.Direction, "Initial traction direction (up, down)")
	fs.Float64Var(&cfg.Volume, "volume", cfg.Volume, "Initial volume 0..1")
	fs.BoolVar(&cfg.Paused, "paused", cfg.Paused, "Start with playback paused")

	fs.BoolVar(&cfg.Keyboard, "keyboard", cfg.Keyboard, "Read key commands from the terminal")
	fs.BoolVar(&cfg.Console, "console", cfg.Console, "Show the status line on the terminal")

	fs.StringVar(&cfg.AnalogSource, "analog", cfg.AnalogSource, "Analog stick source (none, serial, parallel)")
	fs.DurationVar(&cfg.AnalogInterval, "analog-interval", cfg.AnalogInterval, "Analog stick sampling interval")
	fs.Float64Var(&cfg.ZeroRange, "zero-range", cfg.ZeroRange, "Analog stick dead zone half width")
	fs.StringVar(&cfg.SerialPort, "serial", cfg.SerialPort, "Serial port of the stick controller")
	fs.IntVar(&cfg.SerialBaud, "baud", cfg.SerialBaud, "Serial baud rate")
	fs.Func("parallel-pins", "Comma separated GPIO pins of the parallel stick, LSB first", func(s string) error {
		pins, err := parsePins(s)
		if err != nil {
			return err
		}
		cfg.ParallelPins = pins
		return nil
	})

	fs.BoolVar(&cfg.GPIO, "gpio", cfg.GPIO, "Use sysfs GPIO lines")
	fs.StringVar(&cfg.GPIORoot, "gpio-root", cfg.GPIORoot, "sysfs GPIO directory")
	fs.IntVar(&cfg.Course1Pin, "pin-course1", cfg.Course1Pin, "First course stage pin")
	fs.IntVar(&cfg.Course2Pin, "pin-course2", cfg.Course2Pin, "Second course stage pin")
	fs.IntVar(&cfg.GoalPin, "pin-goal", cfg.GoalPin, "Goal pad pin")
	fs.IntVar(&cfg.StartPin, "pin-start", cfg.StartPin, "Start pad pin")
	fs.IntVar(&cfg.SwitchPin, "pin-switch", cfg.SwitchPin, "Traction toggle switch pin")
	fs.IntVar(&cfg.LEDPin, "pin-led", cfg.LEDPin, "Indicator LED pin")

	fs.DurationVar(&cfg.SwitchDebounce, "switch-debounce", cfg.SwitchDebounce, "Toggle switch debounce")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Sensor polling interval")
	fs.DurationVar(&cfg.InvincibleInterval, "invincible", cfg.InvincibleInterval, "Minimum time between counted touches")
	fs.DurationVar(&cfg.GoalDetectionDuration, "goal-dwell", cfg.GoalDetectionDuration, "Time on the goal pad to finish")
	fs.DurationVar(&cfg.StartDetectionDuration, "start-dwell", cfg.StartDetectionDuration, "Time on the start pad to re-arm the clock")

	fs.DurationVar(&cfg.GoalBlink, "goal-blink", cfg.GoalBlink, "LED blink time after a goal, 0 for the fanfare length")

	fs.StringVar(&cfg.SoundDir, "sounds", cfg.SoundDir, "Directory with fanfare.wav and wall*.wav")
	fs.StringVar(&cfg.ResultsPath, "results", cfg.ResultsPath, "Result CSV file, empty to disable")
	fs.StringVar(&cfg.PlayerName, "name", cfg.PlayerName, "Player name recorded with results")
	fs.Float64Var(&cfg.Penalty, "penalty", cfg.Penalty, "Score penalty per touch")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parsePins(s string) ([]int, error) {
	var pins []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("pin %q: %w", f, err)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

// Validate rejects settings the controller cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.AudioBackend {
	case BackendPortAudio, BackendOto, BackendNull:
	default:
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.AudioBackend))
	}
	switch c.AnalogSource {
	case AnalogNone, AnalogParallel:
	case AnalogSerial:
		if c.SerialPort == "" {
			errs = append(errs, errors.New("serial analog source needs a serial port"))
		}
		if c.SerialBaud <= 0 {
			errs = append(errs, fmt.Errorf("invalid baud rate %d", c.SerialBaud))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown analog source %q", c.AnalogSource))
	}
	if c.AnalogSource == AnalogParallel && len(c.ParallelPins) != 3 {
		errs = append(errs, fmt.Errorf("parallel analog source needs 3 pins, got %d", len(c.ParallelPins)))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid sample rate %d", c.SampleRate))
	}
	if c.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("invalid frames per buffer %d", c.FramesPerBuffer))
	}
	if _, err := state.ParseDirection(c.Direction); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.ZeroRange < 0 || c.ZeroRange >= 0.5 {
		errs = append(errs, fmt.Errorf("zero range %v outside [0, 0.5)", c.ZeroRange))
	}
	if c.Penalty < 0 {
		errs = append(errs, fmt.Errorf("negative penalty %v", c.Penalty))
	}
	for name, d := range map[string]time.Duration{
		"analog interval": c.AnalogInterval,
		"poll interval":   c.PollInterval,
		"crash period":    c.CrashPeriod,
		"goal period":     c.GoalPeriod,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	for name, d := range map[string]time.Duration{
		"switch debounce":     c.SwitchDebounce,
		"invincible interval": c.InvincibleInterval,
		"goal dwell":          c.GoalDetectionDuration,
		"start dwell":         c.StartDetectionDuration,
		"crash blink":         c.CrashBlink,
		"goal blink":          c.GoalBlink,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, d))
		}
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// StateOptions returns the initial shared state values.
func (c Config) StateOptions() state.Options {
	dir, _ := state.ParseDirection(c.Direction)
	return state.Options{
		SampleRate: c.SampleRate,
		Volume:     c.Volume,
		Playing:    !c.Paused,
		Frequency:  c.Frequency,
		Antinodes:  c.Antinodes,
		Direction:  dir,
	}
}

func (c Config) Game() game.Config {
	return game.Config{
		InvincibleInterval:     c.InvincibleInterval,
		GoalDetectionDuration:  c.GoalDetectionDuration,
		StartDetectionDuration: c.StartDetectionDuration,
		PollInterval:           c.PollInterval,
	}
}

func (c Config) Feedback() feedback.Config {
	return feedback.Config{
		CrashBlink:  c.CrashBlink,
		CrashPeriod: c.CrashPeriod,
		GoalBlink:   c.GoalBlink,
		GoalPeriod:  c.GoalPeriod,
		Tick:        time.Millisecond,
	}
}

func (c Config) Analog() input.AnalogConfig {
	return input.AnalogConfig{
		Interval:  c.AnalogInterval,
		Center:    input.DefaultAnalogCenter,
		ZeroRange: c.ZeroRange,
	}
}
