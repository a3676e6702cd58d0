package rng

import (
	"math/rand"
)

var _ RNG = &NormalRNG{}

// NormalRNG generates normally distributed numbers
type NormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (r *NormalRNG) Rand() float64 {
	return r.r.NormFloat64()*r.stdev + r.mean
}

func NewNormalRNG(mean float64, stdev float64, opts ...Option) *NormalRNG {
	return &NormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     newSource(opts),
	}
}
