// Package stat computes the summary statistics of a sample sequence and classifies individual points
// against them.  Every rule in a control chart reads the same mean and standard deviation, so they are computed
// once for the whole sequence and never per rule.
package stat

import (
	"math"
)

// Summary holds the mean and population standard deviation of a sample sequence
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
}

// Summarize returns the mean and population standard deviation (divide by n, not n-1) of values.  NaN values
// are not filtered and will poison both statistics.  An empty sequence returns the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	m := mean(values)
	return Summary{
		N:      len(values),
		Mean:   m,
		StdDev: math.Sqrt(variance(values, m)),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	s := 0.0
	for _, v := range values {
		s = s + v
	}
	return s / float64(len(values))
}

// variance is the population variance around mean
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	s := 0.0
	for _, v := range values {
		d := v - mean
		s = s + float64(d*d)
	}
	return s / float64(len(values))
}
