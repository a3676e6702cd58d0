package rules

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnknownRule is returned when a rule override names a rule that does not exist
	ErrUnknownRule = errors.New("unknown rule")
	// ErrUnknownParam is returned when a rule override names a parameter the rule does not take
	ErrUnknownParam = errors.New("unknown rule parameter")
	// ErrInvalidParam is returned when a parameter value is out of range
	ErrInvalidParam = errors.New("invalid rule parameter")
)

// Parameter names accepted by Config.Set
const (
	ParamK      = "k"
	ParamN      = "n"
	ParamWindow = "window"
	ParamCount  = "count"
)

// Band parameterizes a single point test against mean +/- K standard deviations
type Band struct {
	K float64 `json:"k" yaml:"k"`
}

// Run parameterizes a test over N consecutive points
type Run struct {
	N int `json:"n" yaml:"n"`
}

// WindowCount parameterizes a "Count out of Window points beyond K standard deviations" test
type WindowCount struct {
	Window int     `json:"window" yaml:"window"`
	Count  int     `json:"count" yaml:"count"`
	K      float64 `json:"k" yaml:"k"`
}

// BandRun parameterizes a test over N consecutive points relative to a K standard deviation band
type BandRun struct {
	N int     `json:"n" yaml:"n"`
	K float64 `json:"k" yaml:"k"`
}

// Config holds the parameters for all eight rules
type Config struct {
	Rule1 Band        `json:"rule1" yaml:"rule1"`
	Rule2 Run         `json:"rule2" yaml:"rule2"`
	Rule3 Run         `json:"rule3" yaml:"rule3"`
	Rule4 Run         `json:"rule4" yaml:"rule4"`
	Rule5 WindowCount `json:"rule5" yaml:"rule5"`
	Rule6 WindowCount `json:"rule6" yaml:"rule6"`
	Rule7 BandRun     `json:"rule7" yaml:"rule7"`
	Rule8 BandRun     `json:"rule8" yaml:"rule8"`
}

// DefaultConfig returns the standard Nelson parameters
func DefaultConfig() Config {
	return Config{
		Rule1: Band{K: 3.0},
		Rule2: Run{N: 9},
		Rule3: Run{N: 6},
		Rule4: Run{N: 14},
		Rule5: WindowCount{Window: 3, Count: 2, K: 2.0},
		Rule6: WindowCount{Window: 5, Count: 4, K: 1.0},
		Rule7: BandRun{N: 15, K: 1.0},
		Rule8: BandRun{N: 8, K: 1.0},
	}
}

// Set overrides a single parameter of a single rule, e.g. Set("rule5", "k", 2.5)
func (c *Config) Set(rule string, param string, value float64) error {
	switch rule {
	case NameRule1:
		return setBand(&c.Rule1, rule, param, value)
	case NameRule2:
		return setRun(&c.Rule2, rule, param, value)
	case NameRule3:
		return setRun(&c.Rule3, rule, param, value)
	case NameRule4:
		return setRun(&c.Rule4, rule, param, value)
	case NameRule5:
		return setWindowCount(&c.Rule5, rule, param, value)
	case NameRule6:
		return setWindowCount(&c.Rule6, rule, param, value)
	case NameRule7:
		return setBandRun(&c.Rule7, rule, param, value)
	case NameRule8:
		return setBandRun(&c.Rule8, rule, param, value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}
}

// SetAll applies a mapping of rule name to parameter overrides.  Rules are applied in name order so that
// errors are reported deterministically.
func (c *Config) SetAll(overrides map[string]map[string]float64) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params := overrides[name]
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := c.Set(name, k, params[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks every rule's parameters and returns all problems found
func (c Config) Validate() []error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	check(validK(NameRule1, c.Rule1.K))
	check(validN(NameRule2, ParamN, c.Rule2.N))
	check(validN(NameRule3, ParamN, c.Rule3.N))
	check(validN(NameRule4, ParamN, c.Rule4.N))
	for _, r := range []struct {
		name string
		p    WindowCount
	}{{NameRule5, c.Rule5}, {NameRule6, c.Rule6}} {
		check(validN(r.name, ParamWindow, r.p.Window))
		check(validN(r.name, ParamCount, r.p.Count))
		check(validK(r.name, r.p.K))
	}
	for _, r := range []struct {
		name string
		p    BandRun
	}{{NameRule7, c.Rule7}, {NameRule8, c.Rule8}} {
		check(validN(r.name, ParamN, r.p.N))
		check(validK(r.name, r.p.K))
	}
	return errs
}

func setBand(b *Band, rule, param string, value float64) error {
	if param != ParamK {
		return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParam, rule, param)
	}
	if err := validK(rule, value); err != nil {
		return err
	}
	b.K = value
	return nil
}

func setRun(r *Run, rule, param string, value float64) error {
	if param != ParamN {
		return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParam, rule, param)
	}
	n, err := toCount(rule, param, value)
	if err != nil {
		return err
	}
	r.N = n
	return nil
}

func setWindowCount(w *WindowCount, rule, param string, value float64) error {
	switch param {
	case ParamK:
		if err := validK(rule, value); err != nil {
			return err
		}
		w.K = value
	case ParamWindow:
		n, err := toCount(rule, param, value)
		if err != nil {
			return err
		}
		w.Window = n
	case ParamCount:
		n, err := toCount(rule, param, value)
		if err != nil {
			return err
		}
		w.Count = n
	default:
		return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParam, rule, param)
	}
	return nil
}

func setBandRun(b *BandRun, rule, param string, value float64) error {
	switch param {
	case ParamK:
		if err := validK(rule, value); err != nil {
			return err
		}
		b.K = value
	case ParamN:
		n, err := toCount(rule, param, value)
		if err != nil {
			return err
		}
		b.N = n
	default:
		return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParam, rule, param)
	}
	return nil
}

// toCount converts a parameter value to a positive whole number of points
func toCount(rule, param string, value float64) (int, error) {
	if value != math.Trunc(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %s.%s must be a whole number, got %v", ErrInvalidParam, rule, param, value)
	}
	n := int(value)
	if err := validN(rule, param, n); err != nil {
		return 0, err
	}
	return n, nil
}

func validN(rule, param string, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %s.%s must be at least 1, got %d", ErrInvalidParam, rule, param, n)
	}
	return nil
}

func validK(rule string, k float64) error {
	if math.IsNaN(k) || math.IsInf(k, 0) || k < 0 {
		return fmt.Errorf("%w: %s.k must be a finite non-negative number, got %v", ErrInvalidParam, rule, k)
	}
	return nil
}
