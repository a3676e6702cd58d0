package stat

// Direction of a point relative to a reference value
const (
	Below = -1
	On    = 0
	Above = 1
)

// DirectionVsMean returns -1 if x is below the mean, +1 if above, else 0.  A NaN point compares false both ways
// and is treated as on the mean.
func (s Summary) DirectionVsMean(x float64) int {
	switch {
	case x < s.Mean:
		return Below
	case x > s.Mean:
		return Above
	default:
		return On
	}
}

// OutOfBand returns 1 if x lies strictly outside mean +/- k standard deviations, else 0.  Points exactly on the
// band edge are inside.
func (s Summary) OutOfBand(x float64, k float64) int {
	band := float64(k * s.StdDev)
	if x < s.Mean-band || x > s.Mean+band {
		return 1
	}
	return 0
}

// ZScore returns the distance of x from the mean in units of standard deviation.  A zero standard deviation
// yields +/-Inf or NaN.
func (s Summary) ZScore(x float64) float64 {
	return (x - s.Mean) / s.StdDev
}

// Directions classifies every value against the mean
func (s Summary) Directions(values []float64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = s.DirectionVsMean(v)
	}
	return out
}

// OutOfBandFlags returns a parallel sequence of out of band flags for multiplier k
func (s Summary) OutOfBandFlags(values []float64, k float64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = s.OutOfBand(v, k)
	}
	return out
}

// ZScores returns the z-score of every value
func (s Summary) ZScores(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.ZScore(v)
	}
	return out
}

// DirectionsVsPrevious classifies each value against the one before it.  Index 0 has no predecessor and is
// always 0; callers that need a value there must fill it themselves.
func DirectionsVsPrevious(values []float64) []int {
	out := make([]int, len(values))
	for i := 1; i < len(values); i++ {
		switch {
		case values[i] < values[i-1]:
			out[i] = Below
		case values[i] > values[i-1]:
			out[i] = Above
		}
	}
	return out
}
