package game

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// RandomSource supplies the randomness for skull slots and the centering force.
type RandomSource interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

// cryptoRNG is the default source for live sessions.
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

func (c cryptoRNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(c.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

func DefaultRNG() RandomSource { return cryptoRNG{} }

// seededRNG is replayable, used by tests and simulations.
type seededRNG struct{ r *rand.Rand }

func NewSeededRNG(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }

func (s *seededRNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// uniform draws from [lo, hi].
func uniform(rng RandomSource, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
