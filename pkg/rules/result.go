package rules

// Rule names used to address rule parameters
const (
	NameRule1 = "rule1"
	NameRule2 = "rule2"
	NameRule3 = "rule3"
	NameRule4 = "rule4"
	NameRule5 = "rule5"
	NameRule6 = "rule6"
	NameRule7 = "rule7"
	NameRule8 = "rule8"
)

// Result keys.  Rules 5 and 6 produce two flag sequences each: the qualifying points and every window that
// qualified.
const (
	KeyInput        = "input"
	KeyZScore       = "zscore"
	KeyRule1        = NameRule1
	KeyRule2        = NameRule2
	KeyRule3        = NameRule3
	KeyRule4        = NameRule4
	KeyRule5Points  = "rule5_points"
	KeyRule5Windows = "rule5_windows"
	KeyRule6Points  = "rule6_points"
	KeyRule6Windows = "rule6_windows"
	KeyRule7        = NameRule7
	KeyRule8        = NameRule8
)

// Names lists the eight rules in evaluation order
var Names = []string{NameRule1, NameRule2, NameRule3, NameRule4, NameRule5, NameRule6, NameRule7, NameRule8}

// FlagKeys lists every flag sequence key in the order the rules populate them
var FlagKeys = []string{
	KeyRule1, KeyRule2, KeyRule3, KeyRule4,
	KeyRule5Points, KeyRule5Windows,
	KeyRule6Points, KeyRule6Windows,
	KeyRule7, KeyRule8,
}

// Result maps each evaluated rule to its flag sequence.  Every sequence has the same length as Input.  A Result
// returned from the Engine is a copy and is safe to keep after further evaluations.
type Result struct {
	Input  []float64
	ZScore []float64
	flags  map[string][]int
}

func newResult(values []float64) Result {
	return Result{
		Input: copyFloats(values),
		flags: make(map[string][]int),
	}
}

// Flags returns a copy of the flag sequence for key, or nil if that rule has not been evaluated
func (r Result) Flags(key string) []int {
	f, ok := r.flags[key]
	if !ok {
		return nil
	}
	return copyInts(f)
}

// Has reports whether the result holds a flag sequence for key
func (r Result) Has(key string) bool {
	_, ok := r.flags[key]
	return ok
}

// Keys returns the keys present in the result: input, zscore if computed, then flag keys in rule order
func (r Result) Keys() []string {
	keys := []string{KeyInput}
	if r.ZScore != nil {
		keys = append(keys, KeyZScore)
	}
	for _, k := range FlagKeys {
		if r.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Map returns the whole result as a mapping from key to a numeric sequence, with flags widened to 0.0/1.0
func (r Result) Map() map[string][]float64 {
	out := map[string][]float64{KeyInput: copyFloats(r.Input)}
	if r.ZScore != nil {
		out[KeyZScore] = copyFloats(r.ZScore)
	}
	for k, f := range r.flags {
		v := make([]float64, len(f))
		for i, x := range f {
			v[i] = float64(x)
		}
		out[k] = v
	}
	return out
}

// Violations returns the indices flagged for key in ascending order
func (r Result) Violations(key string) []int {
	var idx []int
	for i, f := range r.flags[key] {
		if f != 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// Count returns the number of flagged points for key
func (r Result) Count(key string) int {
	c := 0
	for _, f := range r.flags[key] {
		c += f
	}
	return c
}

// OutOfControl is true if any evaluated rule flagged at least one point
func (r Result) OutOfControl() bool {
	for _, k := range FlagKeys {
		if r.Count(k) > 0 {
			return true
		}
	}
	return false
}

func (r *Result) set(key string, flags []int) {
	r.flags[key] = flags
}

func (r Result) clone() Result {
	out := Result{
		Input: copyFloats(r.Input),
		flags: make(map[string][]int, len(r.flags)),
	}
	if r.ZScore != nil {
		out.ZScore = copyFloats(r.ZScore)
	}
	for k, f := range r.flags {
		out.flags[k] = copyInts(f)
	}
	return out
}

func copyFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func copyInts(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}
