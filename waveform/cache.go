package waveform

import (
	"sync"
	"sync/atomic"

	"github.com/drgolem/traction-maze/state"
)

// Key identifies a generated buffer.
type Key struct {
	SampleRate int
	Frequency  int
	Direction  state.Direction
	Antinodes  int
}

// Cache keeps the most recently generated buffer. Only one parameter set is
// active at a time, so a single entry is enough to skip regeneration between
// playback cycles. Returned buffers are shared; callers must not modify them.
type Cache struct {
	mu        sync.Mutex
	key       Key
	buf       []float32
	generated atomic.Uint64
}

func NewCache() *Cache {
	return &Cache{}
}

// Get returns the buffer for k, generating it on a miss.
func (c *Cache) Get(k Key) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf != nil && c.key == k {
		return c.buf, nil
	}

	buf, err := Generate(k.SampleRate, k.Frequency, k.Antinodes, k.Direction)
	if err != nil {
		return nil, err
	}
	c.generated.Add(1)
	c.key = k
	c.buf = buf
	return buf, nil
}

// Generated returns how many times the cache had to synthesize a buffer.
func (c *Cache) Generated() uint64 {
	return c.generated.Load()
}
