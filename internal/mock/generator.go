package mock

import (
	"math"
	"math/rand"
)

const (
	numChannels = 14
	numBands    = 5 // theta, alpha, betaL, betaH, gamma
)

// powerGenerator yields synthetic 'pow' frames. A slow sinusoid simulates a
// mental state drifting between stressed (high beta) and relaxed (high
// alpha) so the alpha/beta ratio swings across the population baseline and
// exercises the full score range.
type powerGenerator struct {
	step int
	rng  *rand.Rand
}

func newPowerGenerator() *powerGenerator {
	return &powerGenerator{rng: rand.New(rand.NewSource(rand.Int63()))}
}

func (g *powerGenerator) next() []float64 {
	mental := math.Sin(float64(g.step) / 50)
	g.step++

	pow := make([]float64, 0, numChannels*numBands)
	for ch := 0; ch < numChannels; ch++ {
		theta := g.uniform(1, 3)
		gamma := g.uniform(0.5, 2)

		var alpha, betaL, betaH float64
		if mental > 0 {
			// Relaxed: high alpha, low beta.
			alpha = mental*g.uniform(15, 30) + g.uniform(1, 3)
			betaL = (1-mental)*g.uniform(5, 10) + g.uniform(1, 2)
			betaH = (1-mental)*g.uniform(3, 8) + g.uniform(1, 2)
		} else {
			// Stressed: low alpha, high beta.
			alpha = -mental*g.uniform(1, 5) + g.uniform(1, 3)
			betaL = -mental*g.uniform(10, 20) + g.uniform(1, 2)
			betaH = -mental*g.uniform(8, 15) + g.uniform(1, 2)
		}

		pow = append(pow, theta, alpha, betaL, betaH, gamma)
	}
	return pow
}

func (g *powerGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
