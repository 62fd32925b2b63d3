//go:build headless

package device

import (
	"log/slog"

	"github.com/drgolem/traction-maze/player"
)

func openPortAudio(Options, *slog.Logger) (player.Device, error) {
	return nil, ErrUnavailable
}

func openOto(Options, *slog.Logger) (player.Device, error) {
	return nil, ErrUnavailable
}

func List() ([]Info, error) {
	return nil, ErrUnavailable
}
