package rng

import (
	"math"
	"math/rand"
)

var _ RNG = &LogNormalRNG{}

// LogNormalRNG generates Log Normal random numbers
type LogNormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (r *LogNormalRNG) Rand() float64 {
	return math.Exp(r.r.NormFloat64()*r.stdev + r.mean)
}

// NewLogNormalRNG returns a generator whose logarithm has the given mean and standard deviation
func NewLogNormalRNG(mean float64, stdev float64, opts ...Option) *LogNormalRNG {
	return &LogNormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     newSource(opts),
	}
}
