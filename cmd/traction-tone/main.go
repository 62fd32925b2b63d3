// Command traction-tone plays one traction waveform on the audio output, or
// writes it to a WAV file, for tuning the vibration transducer without the
// maze hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/drgolem/traction-maze/device"
	"github.com/drgolem/traction-maze/state"
	"github.com/drgolem/traction-maze/waveform"
)

func main() {
	backend := flag.String("audio", device.PortAudio, "Audio backend (portaudio, oto, null)")
	deviceIdx := flag.Int("device", -1, "PortAudio output device index, -1 for the default device")
	sampleRate := flag.Int("samplerate", state.DefaultSampleRate, "Sample rate in Hz")
	bufferFrames := flag.Int("buffer", 1024, "Frames per audio buffer")
	freq := flag.Int("freq", 63, "Traction frequency in Hz")
	antinodes := flag.Int("antinodes", 4, "Antinode count")
	direction := flag.String("direction", "up", "Traction direction (up, down)")
	volume := flag.Float64("volume", 0.5, "Volume 0..1")
	duration := flag.Duration("duration", 0, "Play time, 0 to play until interrupted")
	wavOut := flag.String("wav", "", "Write one buffer of the waveform to this WAV file and exit")
	flag.Parse()

	dir, err := state.ParseDirection(*direction)
	if err != nil {
		log.Fatal(err)
	}
	samples, err := waveform.Generate(*sampleRate, *freq, *antinodes, dir)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Waveform: %d Hz %s x%d, %d samples (%.1f ms) at %d Hz\n",
		*freq, dir, *antinodes, len(samples),
		float64(len(samples))*1000/float64(*sampleRate), *sampleRate)

	if *wavOut != "" {
		if err := writeWAV(*wavOut, samples, *sampleRate); err != nil {
			log.Fatal("Failed to write WAV:", err)
		}
		fmt.Printf("Wrote %s\n", *wavOut)
		return
	}

	out, err := device.Open(device.Options{
		Backend:         *backend,
		Index:           *deviceIdx,
		SampleRate:      *sampleRate,
		FramesPerBuffer: *bufferFrames,
	}, nil)
	if err != nil {
		log.Fatal("Failed to open audio output:", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	scaled := make([]float32, len(samples))
	v := float32(*volume)
	for i, s := range samples {
		scaled[i] = s * v
	}

	if err := out.Start(); err != nil {
		log.Fatal("Failed to start audio output:", err)
	}
	fmt.Println("Playing. Press Ctrl-C to stop.")

	start := time.Now()
	var writes int
	for ctx.Err() == nil {
		if err := out.Write(scaled); err != nil {
			log.Println("Write failed:", err)
			break
		}
		writes++
	}
	if err := out.Stop(); err != nil {
		log.Println("Warning: Error stopping output:", err)
	}
	fmt.Printf("\nPlayed %d buffers in %v\n", writes, time.Since(start).Round(time.Millisecond))
}

// writeWAV stores samples as 16-bit mono PCM.
func writeWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}
