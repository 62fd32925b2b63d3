package gpio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultSysfsRoot is where the kernel exposes the legacy GPIO interface.
const DefaultSysfsRoot = "/sys/class/gpio"

// EdgePollInterval is the sampling period used to detect edges on sysfs
// lines. It bounds edge latency, not debounce.
const EdgePollInterval = 5 * time.Millisecond

// Sysfs opens lines through the kernel sysfs GPIO interface.
type Sysfs struct {
	Root string
}

// SysfsLine is one exported pin.
type SysfsLine struct {
	pin       int
	valuePath string
	activeLow bool
}

// Input exports pin as an input. With activeLow a "0" reads as Active, which
// is how the pulled-up contact sensors report touch.
func (s Sysfs) Input(pin int, activeLow bool) (*SysfsLine, error) {
	return s.open(pin, "in", activeLow)
}

// Output exports pin as an output driven high for on.
func (s Sysfs) Output(pin int) (*SysfsLine, error) {
	return s.open(pin, "out", false)
}

func (s Sysfs) open(pin int, direction string, activeLow bool) (*SysfsLine, error) {
	root := s.Root
	if root == "" {
		root = DefaultSysfsRoot
	}
	if pin < 0 {
		return nil, fmt.Errorf("gpio: invalid pin %d", pin)
	}

	dir := filepath.Join(root, "gpio"+strconv.Itoa(pin))
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(pin)), 0o200); err != nil {
			return nil, fmt.Errorf("gpio: export pin %d: %w", pin, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("gpio: stat pin %d: %w", pin, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte(direction), 0o644); err != nil {
		return nil, fmt.Errorf("gpio: set pin %d direction %s: %w", pin, direction, err)
	}

	return &SysfsLine{
		pin:       pin,
		valuePath: filepath.Join(dir, "value"),
		activeLow: activeLow,
	}, nil
}

func (l *SysfsLine) Pin() int {
	return l.pin
}

func (l *SysfsLine) Read() (Level, error) {
	raw, err := os.ReadFile(l.valuePath)
	if err != nil {
		return Unknown, fmt.Errorf("gpio: read pin %d: %w", l.pin, err)
	}
	switch string(bytes.TrimSpace(raw)) {
	case "0":
		if l.activeLow {
			return Active, nil
		}
		return Inactive, nil
	case "1":
		if l.activeLow {
			return Inactive, nil
		}
		return Active, nil
	default:
		return Unknown, nil
	}
}

func (l *SysfsLine) Set(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := os.WriteFile(l.valuePath, []byte(v), 0o644); err != nil {
		return fmt.Errorf("gpio: write pin %d: %w", l.pin, err)
	}
	return nil
}

// WaitForEdge polls the value file until the line turns Active from
// Inactive or Unknown. A line already held Active is not an edge.
func (l *SysfsLine) WaitForEdge(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(EdgePollInterval)
	defer ticker.Stop()

	prev, err := l.Read()
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			cur, err := l.Read()
			if err != nil {
				return err
			}
			// A blank first read must not hide a press.
			if cur == Active && prev != Active {
				return nil
			}
			if cur != Unknown {
				prev = cur
			}
			if now.After(deadline) {
				return ErrTimeout
			}
		}
	}
}
