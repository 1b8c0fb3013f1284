// Package seed derives reproducible per-trial random seeds.
//
// The derivation matches the legacy MT19937 integer seeding used by the
// original experiment scripts: the generator is seeded with init_genrand,
// each uniform double is built from two 32-bit draws, scaled by 1e9 and
// truncated. Existing result directories depend on these exact values.
package seed

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext/prng"
)

// Scale converts a uniform [0,1) sample into a seed.
const Scale = 1e9

// Source is an explicitly owned MT19937 stream. It is not safe for
// concurrent use.
type Source struct {
	mt *prng.MT19937
}

// NewSource returns a Source seeded with seed. Seeds must fit in 32 bits.
func NewSource(seed int64) (*Source, error) {
	if seed < 0 || seed > math.MaxUint32 {
		return nil, fmt.Errorf("seed %d out of range [0, %d]", seed, uint64(math.MaxUint32))
	}
	mt := prng.NewMT19937()
	mt.Seed(uint64(seed))
	return &Source{mt: mt}, nil
}

// Float64 returns a uniform sample in [0,1) with 53 bits of precision.
func (s *Source) Float64() float64 {
	a := s.mt.Uint32() >> 5
	b := s.mt.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

// Uint64 exposes the raw stream so a Source can back math/rand/v2.
func (s *Source) Uint64() uint64 {
	return s.mt.Uint64()
}

// Next returns the next derived seed.
func (s *Source) Next() int64 {
	return int64(s.Float64() * Scale)
}

// GenerateSeeds returns n seeds derived from seed. The same inputs always
// produce the same sequence.
func GenerateSeeds(n int, seed int64) ([]int64, error) {
	if n < 0 {
		return nil, fmt.Errorf("seed count must be non-negative, got %d", n)
	}
	src, err := NewSource(seed)
	if err != nil {
		return nil, err
	}
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = src.Next()
	}
	return seeds, nil
}
