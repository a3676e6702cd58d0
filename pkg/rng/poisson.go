package rng

import (
	"math"
	"math/rand"
)

var _ RNG = &PoissonRNG{}

// PoissonRNG generates Poisson distributed counts using Knuth's algorithm
type PoissonRNG struct {
	lambda float64
	r      *rand.Rand
}

func (r *PoissonRNG) Rand() float64 {
	l := math.Exp(-r.lambda)
	var k int64
	p := 1.0

	for p > l {
		k++
		p *= r.r.Float64()
	}
	return float64(k - 1)
}

func NewPoissonRNG(lambda float64, opts ...Option) *PoissonRNG {
	return &PoissonRNG{
		lambda: lambda,
		r:      newSource(opts),
	}
}
