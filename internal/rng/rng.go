// Package rng provides the deterministic pseudo-random source shared by the
// generator, engine, and shrinker. Every draw is reproducible from a seed so
// that two campaigns run with the same (seed, bundle, config) explore the
// same trace space.
package rng

import (
	"math"
	"math/rand"
)

// Source is a deterministic PRNG wrapper. It is not safe for concurrent use;
// the engine owns a single Source per campaign and never shares it across
// goroutines.
type Source struct {
	r *rand.Rand
}

// New returns a Source seeded deterministically from seed.
func New(seed uint64) *Source {
	return &Source{r: rand.New(rand.NewSource(int64(seed)))}
}

// Bool draws a uniform boolean.
func (s *Source) Bool() bool {
	return s.r.Intn(2) == 1
}

// U8 draws a uniform uint8 over the full range.
func (s *Source) U8() uint8 { return uint8(s.r.Uint32()) }

// U16 draws a uniform uint16 over the full range.
func (s *Source) U16() uint16 { return uint16(s.r.Uint32()) }

// U32 draws a uniform uint32 over the full range.
func (s *Source) U32() uint32 { return s.r.Uint32() }

// U64 draws a uniform uint64 over the full range.
func (s *Source) U64() uint64 { return s.r.Uint64() }

// U128 draws a uniform 128-bit unsigned integer as two uint64 limbs (lo, hi).
func (s *Source) U128() (lo, hi uint64) { return s.r.Uint64(), s.r.Uint64() }

// I8, I16, I32, I64 draw signed integers over their full two's-complement range.
func (s *Source) I8() int8   { return int8(s.r.Uint32()) }
func (s *Source) I16() int16 { return int16(s.r.Uint32()) }
func (s *Source) I32() int32 { return int32(s.r.Uint32()) }
func (s *Source) I64() int64 { return int64(s.r.Uint64()) }

// I128 draws a signed 128-bit integer as two's-complement limbs (lo, hi).
func (s *Source) I128() (lo, hi uint64) { return s.r.Uint64(), s.r.Uint64() }

// UsizeIn draws a uniform integer in [lo, hi]. Panics if hi < lo.
func (s *Source) UsizeIn(lo, hi int) int {
	if hi < lo {
		panic("rng: UsizeIn with hi < lo")
	}
	if hi == lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo+1)
}

// Choice picks a uniformly random index in [0, n). n must be > 0.
func (s *Source) Choice(n int) int {
	if n <= 0 {
		panic("rng: Choice on empty sequence")
	}
	return s.r.Intn(n)
}

// Length samples a sequence length biased toward small values: draw r
// uniformly from [1, m) and return floor(m / r^2), raised to at least 1.
// With m=20 this concentrates mass on 1-3 with a long tail.
func (s *Source) Length() int {
	const m = 20
	r := 1 + s.r.Intn(m-1) // r in [1, m)
	n := int(math.Floor(float64(m) / float64(r*r)))
	if n < 1 {
		n = 1
	}
	return n
}
