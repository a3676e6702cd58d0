package rules

import "github.com/BTBurke/nelson/pkg/stat"

// eachWindow calls fn for every window [i-size, i) with i running from size up to and including last.  Most
// rules pass last = n so the final window ends at the last sample; the windowed band rules and rule 8 pass
// n-1 and never look at a window ending on the final sample.
func eachWindow(size int, last int, fn func(lo, hi int)) {
	if size < 1 {
		return
	}
	for i := size; i <= last; i++ {
		fn(i-size, i)
	}
}

// scanWindows finds windows of length w in which at least c points lie on the same side of the mean AND at
// least c points lie outside the band, and at least c points satisfy both.  For a qualifying window the
// combined mask overwrites points over the window range, so overlapping windows resolve to the last window
// that qualified, and windows is set to 1 across the whole range.
func scanWindows(directions []int, outOfBand []int, w int, c int) ([]int, []int) {
	n := len(directions)
	points := make([]int, n)
	windows := make([]int, n)

	eachWindow(w, n-1, func(lo, hi int) {
		side := sameSideMask(directions[lo:hi], c)

		band := outOfBand[lo:hi]
		if count(band, 1) < c {
			return
		}

		mask := make([]int, w)
		hits := 0
		for j := range mask {
			if side[j] && band[j] == 1 {
				mask[j] = 1
				hits++
			}
		}
		if hits >= c {
			copy(points[lo:hi], mask)
			fill(windows[lo:hi], 1)
		}
	})
	return points, windows
}

// sameSideMask marks the points on the side of the mean that holds at least c points, checking below the mean
// first.  If neither side reaches c the mask is all false.
func sameSideMask(window []int, c int) []bool {
	mask := make([]bool, len(window))
	side := stat.On
	switch {
	case count(window, stat.Below) >= c:
		side = stat.Below
	case count(window, stat.Above) >= c:
		side = stat.Above
	default:
		return mask
	}
	for i, d := range window {
		mask[i] = d == side
	}
	return mask
}

func count(window []int, v int) int {
	c := 0
	for _, x := range window {
		if x == v {
			c++
		}
	}
	return c
}

func sum(window []int) int {
	s := 0
	for _, x := range window {
		s += x
	}
	return s
}

func fill(dst []int, v int) {
	for i := range dst {
		dst[i] = v
	}
}
