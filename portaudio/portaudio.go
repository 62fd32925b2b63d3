//go:build !headless

// Package portaudio is a small cgo binding to the PortAudio blocking output
// API. It covers what the traction player needs: library lifetime, output
// device lookup and a float32 output stream written with Pa_WriteStream.
//
//	portaudio.Initialize()
//	defer portaudio.Terminate()
//
//	s, _ := portaudio.OpenOutputStream(-1, 1, 44100, 1024)
//	defer s.Close()
//	s.Start()
//	s.WriteFloat32(samples) // blocks until PortAudio has taken the buffer
//
// A stream must be used from one goroutine at a time.
package portaudio

/*
#cgo pkg-config: portaudio-2.0
#include <portaudio.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	// initialized is the Initialize reference count.
	initialized int
	initMu      sync.Mutex
)

// PaError is a PortAudio error code.
type PaError struct {
	ErrorCode int
}

func (e *PaError) Error() string {
	return GetErrorText(e.ErrorCode)
}

// UnanticipatedHostError carries the host API details (ALSA, CoreAudio,
// WASAPI) of a paUnanticipatedHostError.
type UnanticipatedHostError struct {
	Code          int
	Text          string
	HostApiType   int
	HostErrorCode int
	HostErrorText string
}

func (e *UnanticipatedHostError) Error() string {
	if e.HostErrorText != "" {
		return fmt.Sprintf("%s [Host API error %d: %s]", e.Text, e.HostErrorCode, e.HostErrorText)
	}
	return fmt.Sprintf("%s [Host API error %d]", e.Text, e.HostErrorCode)
}

// ErrStreamClosed is returned by operations on a closed stream.
var ErrStreamClosed = errors.New("portaudio: stream not open")

func GetVersion() int {
	return int(C.Pa_GetVersion())
}

func GetVersionText() string {
	vi := C.Pa_GetVersionInfo()
	return C.GoString(vi.versionText)
}

func GetErrorText(errorCode int) string {
	return C.GoString(C.Pa_GetErrorText(C.PaError(errorCode)))
}

func newError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	if code == C.paUnanticipatedHostError {
		if hostErr := C.Pa_GetLastHostErrorInfo(); hostErr != nil {
			return &UnanticipatedHostError{
				Code:          int(code),
				Text:          C.GoString(C.Pa_GetErrorText(code)),
				HostApiType:   int(hostErr.hostApiType),
				HostErrorCode: int(hostErr.errorCode),
				HostErrorText: C.GoString(hostErr.errorText),
			}
		}
	}
	return &PaError{int(code)}
}

// Initialize starts the library. Calls are reference counted; each must be
// matched by Terminate.
func Initialize() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized == 0 {
		if code := C.Pa_Initialize(); code != C.paNoError {
			return newError(code)
		}
	}
	initialized++
	return nil
}

// Terminate releases the library when the last Initialize is matched.
func Terminate() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized == 0 {
		return nil
	}
	initialized--
	if initialized == 0 {
		if code := C.Pa_Terminate(); code != C.paNoError {
			initialized++
			return newError(code)
		}
	}
	return nil
}

// DeviceInfo describes one audio device.
type DeviceInfo struct {
	Index                    int
	Name                     string
	HostApiIndex             int
	MaxOutputChannels        int
	DefaultLowOutputLatency  float64
	DefaultHighOutputLatency float64
	DefaultSampleRate        float64
}

func GetDeviceInfo(deviceIdx int) (*DeviceInfo, error) {
	di := C.Pa_GetDeviceInfo(C.PaDeviceIndex(deviceIdx))
	if di == nil {
		return nil, fmt.Errorf("portaudio: invalid device index %d", deviceIdx)
	}
	return &DeviceInfo{
		Index:                    deviceIdx,
		Name:                     C.GoString(di.name),
		HostApiIndex:             int(di.hostApi),
		MaxOutputChannels:        int(di.maxOutputChannels),
		DefaultLowOutputLatency:  float64(di.defaultLowOutputLatency),
		DefaultHighOutputLatency: float64(di.defaultHighOutputLatency),
		DefaultSampleRate:        float64(di.defaultSampleRate),
	}, nil
}

// OutputDevices lists devices with at least one output channel.
func OutputDevices() ([]*DeviceInfo, error) {
	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, &PaError{count}
	}
	var out []*DeviceInfo
	for i := range count {
		di, err := GetDeviceInfo(i)
		if err != nil {
			return nil, err
		}
		if di.MaxOutputChannels > 0 {
			out = append(out, di)
		}
	}
	return out, nil
}

func DefaultOutputDevice() (*DeviceInfo, error) {
	index := int(C.Pa_GetDefaultOutputDevice())
	if index < 0 {
		return nil, errors.New("portaudio: no default output device")
	}
	return GetDeviceInfo(index)
}

// OutputStream is an open float32 output stream in blocking mode.
type OutputStream struct {
	stream     unsafe.Pointer
	channels   int
	sampleRate float64
	device     *DeviceInfo
	open       bool
}

// OpenOutputStream opens a float32 stream on device, or on the default
// output device when device is negative. The high output latency of the
// device is requested to keep blocking writes from underrunning.
func OpenOutputStream(device, channels int, sampleRate float64, framesPerBuffer int) (*OutputStream, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("portaudio: invalid channel count %d", channels)
	}
	if framesPerBuffer <= 0 {
		return nil, errors.New("portaudio: framesPerBuffer must be positive")
	}

	var (
		di  *DeviceInfo
		err error
	)
	if device < 0 {
		di, err = DefaultOutputDevice()
	} else {
		di, err = GetDeviceInfo(device)
	}
	if err != nil {
		return nil, err
	}
	if di.MaxOutputChannels < channels {
		return nil, fmt.Errorf("portaudio: device %q has %d output channels, need %d", di.Name, di.MaxOutputChannels, channels)
	}

	params := C.PaStreamParameters{
		device:           C.int(di.Index),
		channelCount:     C.int(channels),
		sampleFormat:     C.PaSampleFormat(C.paFloat32),
		suggestedLatency: C.double(di.DefaultHighOutputLatency),
	}
	if code := C.Pa_IsFormatSupported(nil, &params, C.double(sampleRate)); code != C.paFormatIsSupported {
		return nil, newError(code)
	}

	s := &OutputStream{channels: channels, sampleRate: sampleRate, device: di}
	code := C.Pa_OpenStream(&s.stream,
		nil,
		&params,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.ulong(C.paClipOff),
		nil,
		nil)
	if code != C.paNoError {
		return nil, newError(code)
	}
	s.open = true
	return s, nil
}

// Device is the device the stream was opened on.
func (s *OutputStream) Device() *DeviceInfo {
	return s.device
}

func (s *OutputStream) Start() error {
	if !s.open {
		return ErrStreamClosed
	}
	return newError(C.Pa_StartStream(s.stream))
}

// Stop waits for queued buffers to play out and stops the stream.
func (s *OutputStream) Stop() error {
	if !s.open {
		return ErrStreamClosed
	}
	return newError(C.Pa_StopStream(s.stream))
}

// Active reports whether the stream is started.
func (s *OutputStream) Active() bool {
	return s.open && C.Pa_IsStreamActive(s.stream) == 1
}

// Close closes the stream. Closing twice is a no-op.
func (s *OutputStream) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	return newError(C.Pa_CloseStream(s.stream))
}

// WriteFloat32 writes interleaved samples and blocks until PortAudio has
// queued them all. len(samples) must be a multiple of the channel count.
func (s *OutputStream) WriteFloat32(samples []float32) error {
	if !s.open {
		return ErrStreamClosed
	}
	if len(samples) == 0 {
		return nil
	}
	if len(samples)%s.channels != 0 {
		return fmt.Errorf("portaudio: %d samples is not a whole number of %d-channel frames", len(samples), s.channels)
	}
	frames := len(samples) / s.channels
	code := C.Pa_WriteStream(s.stream, unsafe.Pointer(&samples[0]), C.ulong(frames))
	// Underflow only means a gap was heard; the write itself succeeded.
	if code == C.paOutputUnderflowed {
		return nil
	}
	return newError(code)
}
