// Package rules implements the eight Nelson Rules for detecting non-random patterns in a control chart.
//
// Every rule is a pure function of the sample sequence, its summary statistics and the rule's parameters and
// returns a flag sequence the same length as the input where 1 marks a point that takes part in a violation.
// The Engine runs the rules against one sequence and collects their output into a Result.
package rules

import (
	"github.com/BTBurke/nelson/pkg/stat"
)

// Rule1 flags every point more than K standard deviations from the mean
func Rule1(values []float64, s stat.Summary, p Band) []int {
	return s.OutOfBandFlags(values, p.K)
}

// Rule2 flags runs of N or more consecutive points on the same side of the mean
func Rule2(values []float64, s stat.Summary, p Run) []int {
	directions := s.Directions(values)
	out := make([]int, len(values))
	eachWindow(p.N, len(values), func(lo, hi int) {
		w := directions[lo:hi]
		if count(w, stat.Below) == p.N || count(w, stat.Above) == p.N {
			fill(out[lo:hi], 1)
		}
	})
	return out
}

// Rule3 flags runs of N or more consecutive points that are all increasing or all decreasing.  The first point
// has no predecessor, so it takes the direction of the step to the second point and can open a trend.
func Rule3(values []float64, s stat.Summary, p Run) []int {
	n := len(values)
	directions := stat.DirectionsVsPrevious(values)
	if n >= p.N && n >= 2 {
		if values[1] < values[0] {
			directions[0] = stat.Below
		} else {
			directions[0] = stat.Above
		}
	}

	out := make([]int, n)
	eachWindow(p.N, n, func(lo, hi int) {
		total := sum(directions[lo:hi])
		if total == -p.N || total == p.N {
			fill(out[lo:hi], 1)
		}
	})
	return out
}

// Rule4 flags runs of N or more consecutive points that alternate up and down.  The first point is given the
// direction opposite to the step to the second point so that it continues an alternating pattern.
func Rule4(values []float64, s stat.Summary, p Run) []int {
	n := len(values)
	directions := stat.DirectionsVsPrevious(values)
	if n >= p.N && n >= 2 {
		if values[1] < values[0] {
			directions[0] = stat.Above
		} else {
			directions[0] = stat.Below
		}
	}

	downFirst := alternating(p.N, stat.Below)
	upFirst := alternating(p.N, stat.Above)

	out := make([]int, n)
	eachWindow(p.N, n, func(lo, hi int) {
		w := directions[lo:hi]
		if equal(w, downFirst) || equal(w, upFirst) {
			fill(out[lo:hi], 1)
		}
	})
	return out
}

// Rule5 flags Count out of Window consecutive points more than K standard deviations from the mean on the same
// side (2 of 3 beyond 2 sigma by default).  It returns the qualifying points and the qualifying windows.
func Rule5(values []float64, s stat.Summary, p WindowCount) ([]int, []int) {
	return sameSideBeyond(values, s, p)
}

// Rule6 is Rule5 with the 4 of 5 beyond 1 sigma defaults
func Rule6(values []float64, s stat.Summary, p WindowCount) ([]int, []int) {
	return sameSideBeyond(values, s, p)
}

// Rule7 flags runs of N consecutive points all within K standard deviations of the mean with points on both
// sides of it
func Rule7(values []float64, s stat.Summary, p BandRun) []int {
	directions := s.Directions(values)
	band := s.OutOfBandFlags(values, p.K)
	out := make([]int, len(values))
	eachWindow(p.N, len(values), func(lo, hi int) {
		w := directions[lo:hi]
		mixed := count(w, stat.Below) >= 1 && count(w, stat.Above) >= 1
		if mixed && sum(band[lo:hi]) == 0 {
			fill(out[lo:hi], 1)
		}
	})
	return out
}

// Rule8 flags runs of N consecutive points all more than K standard deviations from the mean with points on
// both sides of it.
//
// Unlike rules 1 through 7 the last window considered ends one sample before the end of the sequence, so the
// final sample never takes part in a rule 8 violation.
func Rule8(values []float64, s stat.Summary, p BandRun) []int {
	directions := s.Directions(values)
	band := s.OutOfBandFlags(values, p.K)
	out := make([]int, len(values))
	eachWindow(p.N, len(values)-1, func(lo, hi int) {
		w := directions[lo:hi]
		if count(w, stat.Above) > 0 && count(w, stat.Below) > 0 && sum(band[lo:hi]) == p.N {
			fill(out[lo:hi], 1)
		}
	})
	return out
}

func sameSideBeyond(values []float64, s stat.Summary, p WindowCount) ([]int, []int) {
	return scanWindows(s.Directions(values), s.OutOfBandFlags(values, p.K), p.Window, p.Count)
}

// alternating returns the pattern first, -first, first, ... of length n
func alternating(n int, first int) []int {
	if n < 0 {
		n = 0
	}
	out := make([]int, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = first
		} else {
			out[i] = -first
		}
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
