package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/drgolem/traction-maze/config"
	"github.com/drgolem/traction-maze/gpio"
)

func fakePin(t *testing.T, root string, pin int, value string) {
	t.Helper()
	dir := filepath.Join(root, "gpio"+strconv.Itoa(pin))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{"direction": "in", "value": value} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpenLinesWithoutGPIO(t *testing.T) {
	cfg := testConfig(t)
	cfg.GPIO = false
	set := openLines(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if set.toggle != nil {
		t.Error("switch opened without gpio")
	}
	lvl, err := set.game.Goal.Read()
	if err != nil || lvl != gpio.Inactive {
		t.Errorf("goal = %v, %v", lvl, err)
	}
	if err := set.led.Set(false); err != nil {
		t.Errorf("led: %v", err)
	}
}

func TestOpenLinesPartialSysfs(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t)
	cfg.GPIORoot = root
	fakePin(t, root, cfg.Course1Pin, "0")
	fakePin(t, root, cfg.SwitchPin, "1")

	set := openLines(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if set.game.Course1 == nil {
		t.Fatal("course1 not opened")
	}
	// Active low: "0" is contact.
	if lvl, err := set.game.Course1.Read(); err != nil || lvl != gpio.Active {
		t.Errorf("course1 = %v, %v", lvl, err)
	}
	if set.game.Course2 != nil || set.game.Goal != nil || set.game.Start != nil {
		t.Error("missing pins should be left nil")
	}
	if set.toggle == nil {
		t.Error("switch not opened")
	}
	if _, ok := set.led.(*gpio.Line); !ok {
		t.Errorf("led = %T, want in-memory fallback", set.led)
	}
}
