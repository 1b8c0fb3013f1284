package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/spexplore/internal/seed"
)

// Params describes a synthetic dataset: NSamples noisy copies of one random
// base SDR of NBits bits.
type Params struct {
	NSamples  int
	NBits     int
	PctActive float64
	PctNoise  float64
	Seed      int64
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.NSamples < 1 {
		return fmt.Errorf("nsamples must be at least 1, got %d", p.NSamples)
	}
	if p.NBits < 1 {
		return fmt.Errorf("nbits must be at least 1, got %d", p.NBits)
	}
	if p.PctActive < 0 || p.PctActive > 1 {
		return fmt.Errorf("pct_active must be between 0 and 1, got %f", p.PctActive)
	}
	if p.PctNoise < 0 || p.PctNoise > 1 {
		return fmt.Errorf("pct_noise must be between 0 and 1, got %f", p.PctNoise)
	}
	return nil
}

// Generate builds the dataset. The base SDR has round(NBits*PctActive) active
// bits; each sample flips round(NBits*PctNoise) distinct random positions.
// The result depends only on p.
func Generate(p Params) (*Matrix, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	src, err := seed.NewSource(p.Seed)
	if err != nil {
		return nil, err
	}
	rng := rand.New(src)

	nactive := int(math.Round(float64(p.NBits) * p.PctActive))
	nflip := int(math.Round(float64(p.NBits) * p.PctNoise))

	base := make([]uint8, p.NBits)
	for _, j := range rng.Perm(p.NBits)[:nactive] {
		base[j] = 1
	}

	m := NewMatrix(p.NSamples, p.NBits)
	for i := 0; i < p.NSamples; i++ {
		row := m.Row(i)
		copy(row, base)
		for _, j := range rng.Perm(p.NBits)[:nflip] {
			row[j] ^= 1
		}
	}
	return m, nil
}
