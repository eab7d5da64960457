package effects

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Rand is the randomness source of the engine
type Rand interface {
	// Float64 returns a value in [0, 1)
	Float64() float64
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a goroutine-safe source. A zero seed is replaced with one
// read from crypto/rand.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = cryptoSeed()
	}
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("effects: crypto seed: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// FixedRand replays values in order, then repeats the last one. Used by tests
// and the simulator to force outcomes.
type FixedRand struct {
	mu     sync.Mutex
	values []float64
	calls  int
}

// NewFixedRand creates a scripted source
func NewFixedRand(values ...float64) *FixedRand {
	return &FixedRand{values: values}
}

func (f *FixedRand) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.values) == 0 {
		return 0.999999
	}
	v := f.values[0]
	if len(f.values) > 1 {
		f.values = f.values[1:]
	}
	return v
}

// Calls returns how many draws were made
func (f *FixedRand) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
