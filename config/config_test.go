package config

import (
	"flag"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/drgolem/traction-maze/state"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	opts := cfg.StateOptions()
	if opts != state.DefaultOptions() {
		t.Errorf("state options = %+v, want %+v", opts, state.DefaultOptions())
	}
	g := cfg.Game()
	if g.InvincibleInterval != 200*time.Millisecond || g.PollInterval != 20*time.Millisecond {
		t.Errorf("game config = %+v", g)
	}
	if cfg.GoalBlink != 9300*time.Millisecond {
		t.Errorf("goal blink = %v", cfg.GoalBlink)
	}
	if len(cfg.ParallelPins) != 3 || cfg.ParallelPins[0] != 21 {
		t.Errorf("parallel pins = %v", cfg.ParallelPins)
	}
}

func TestEnvThenFlags(t *testing.T) {
	t.Setenv("TRACTION_FREQUENCY", "120")
	t.Setenv("TRACTION_DIRECTION", "down")
	t.Setenv("TRACTION_GOAL_DWELL", "1s")

	cfg := parse(t, "-freq", "80", "-parallel-pins", "1, 2,3")
	if cfg.Frequency != 80 {
		t.Errorf("flag did not override env: %d", cfg.Frequency)
	}
	if cfg.Direction != "down" || cfg.StateOptions().Direction != state.Down {
		t.Errorf("direction = %q", cfg.Direction)
	}
	if cfg.GoalDetectionDuration != time.Second {
		t.Errorf("goal dwell = %v", cfg.GoalDetectionDuration)
	}
	if got := cfg.ParallelPins; len(got) != 3 || got[1] != 2 {
		t.Errorf("parallel pins = %v", got)
	}
}

func TestBadEnv(t *testing.T) {
	t.Setenv("TRACTION_SAMPLE_RATE", "fast")
	if _, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil); err == nil {
		t.Error("expected error for a non-numeric sample rate")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"backend", func(c *Config) { c.AudioBackend = "alsa" }, "audio backend"},
		{"serial port", func(c *Config) { c.AnalogSource = AnalogSerial }, "serial port"},
		{"parallel pins", func(c *Config) { c.AnalogSource = AnalogParallel; c.ParallelPins = []int{1} }, "3 pins"},
		{"direction", func(c *Config) { c.Direction = "sideways" }, "direction"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"zero range", func(c *Config) { c.ZeroRange = 0.5 }, "zero range"},
		{"poll", func(c *Config) { c.PollInterval = 0 }, "poll interval"},
		{"dwell", func(c *Config) { c.GoalDetectionDuration = -time.Second }, "goal dwell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parse(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	if err != nil || l != slog.LevelDebug {
		t.Errorf("ParseLevel(debug) = %v, %v", l, err)
	}
}
