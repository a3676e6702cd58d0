// Package rng generates in-control sample sequences for simulating control charts
package rng

import (
	"math/rand"
	"time"
)

// RNG is a random number generator
type RNG interface {
	Rand() float64
}

// Option configures a generator
type Option func(r *rand.Rand)

// WithSeed makes the generator deterministic
func WithSeed(seed int64) Option {
	return func(r *rand.Rand) {
		r.Seed(seed)
	}
}

func newSource(opts []Option) *rand.Rand {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fill returns n samples drawn from g
func Fill(g RNG, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Rand()
	}
	return out
}
