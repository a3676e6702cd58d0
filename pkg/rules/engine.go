package rules

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/BTBurke/nelson/pkg/stat"
)

// Engine evaluates the Nelson rules against a single sample sequence.  Summary statistics are computed once
// when the engine is created.  Each RuleN method runs one rule with explicit parameters and records its output;
// ApplyRules runs all eight with the configured parameters.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	values   []float64
	summary  stat.Summary
	config   Config
	parallel bool
	logger   *slog.Logger
	result   Result
}

// EngineOption configures an Engine
type EngineOption func(e *Engine) error

// NewEngine returns an engine for values using the default rule parameters unless overridden with WithConfig.
// The engine keeps its own copy of values.
func NewEngine(values []float64, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		values: copyFloats(values),
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to create rule engine: %w", err)
		}
	}
	e.summary = stat.Summarize(e.values)
	e.result = newResult(e.values)
	return e, nil
}

// WithConfig replaces the default rule parameters.  The config is validated and the first problem is returned.
func WithConfig(c Config) EngineOption {
	return func(e *Engine) error {
		if errs := c.Validate(); len(errs) > 0 {
			return errs[0]
		}
		e.config = c
		return nil
	}
}

// WithParallel evaluates the rules concurrently in ApplyRules
func WithParallel() EngineOption {
	return func(e *Engine) error {
		e.parallel = true
		return nil
	}
}

// WithLogger sets the logger used for per rule debug output
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) error {
		if l == nil {
			return fmt.Errorf("logger must not be nil")
		}
		e.logger = l
		return nil
	}
}

// Summary returns the mean and standard deviation shared by every rule
func (e *Engine) Summary() stat.Summary {
	return e.summary
}

// Config returns the configured rule parameters
func (e *Engine) Config() Config {
	return e.config
}

// Result returns a copy of everything evaluated so far
func (e *Engine) Result() Result {
	return e.result.clone()
}

// ZScores computes and records the z-score of every sample
func (e *Engine) ZScores() []float64 {
	e.result.ZScore = e.summary.ZScores(e.values)
	return copyFloats(e.result.ZScore)
}

func (e *Engine) Rule1(p Band) []int {
	return e.record(KeyRule1, Rule1(e.values, e.summary, p))
}

func (e *Engine) Rule2(p Run) []int {
	return e.record(KeyRule2, Rule2(e.values, e.summary, p))
}

func (e *Engine) Rule3(p Run) []int {
	return e.record(KeyRule3, Rule3(e.values, e.summary, p))
}

func (e *Engine) Rule4(p Run) []int {
	return e.record(KeyRule4, Rule4(e.values, e.summary, p))
}

// Rule5 records both the qualifying points and the qualifying windows and returns them in that order
func (e *Engine) Rule5(p WindowCount) ([]int, []int) {
	points, windows := Rule5(e.values, e.summary, p)
	return e.record(KeyRule5Points, points), e.record(KeyRule5Windows, windows)
}

// Rule6 records both the qualifying points and the qualifying windows and returns them in that order
func (e *Engine) Rule6(p WindowCount) ([]int, []int) {
	points, windows := Rule6(e.values, e.summary, p)
	return e.record(KeyRule6Points, points), e.record(KeyRule6Windows, windows)
}

func (e *Engine) Rule7(p BandRun) []int {
	return e.record(KeyRule7, Rule7(e.values, e.summary, p))
}

func (e *Engine) Rule8(p BandRun) []int {
	return e.record(KeyRule8, Rule8(e.values, e.summary, p))
}

// ApplyRules computes z-scores and runs all eight rules with the configured parameters, returning a copy of
// the complete result.  Running it again on the same engine yields an identical result.
func (e *Engine) ApplyRules() Result {
	e.ZScores()
	if e.parallel {
		e.applyParallel()
	} else {
		e.Rule1(e.config.Rule1)
		e.Rule2(e.config.Rule2)
		e.Rule3(e.config.Rule3)
		e.Rule4(e.config.Rule4)
		e.Rule5(e.config.Rule5)
		e.Rule6(e.config.Rule6)
		e.Rule7(e.config.Rule7)
		e.Rule8(e.config.Rule8)
	}
	return e.Result()
}

// applyParallel runs each rule in its own goroutine.  Rules only read the shared samples and summary and write
// to their own slot, so the outputs are merged into the result after the join in rule order.
func (e *Engine) applyParallel() {
	c := e.config
	out := make([][]int, len(FlagKeys))

	var g errgroup.Group
	g.Go(func() error { out[0] = Rule1(e.values, e.summary, c.Rule1); return nil })
	g.Go(func() error { out[1] = Rule2(e.values, e.summary, c.Rule2); return nil })
	g.Go(func() error { out[2] = Rule3(e.values, e.summary, c.Rule3); return nil })
	g.Go(func() error { out[3] = Rule4(e.values, e.summary, c.Rule4); return nil })
	g.Go(func() error { out[4], out[5] = Rule5(e.values, e.summary, c.Rule5); return nil })
	g.Go(func() error { out[6], out[7] = Rule6(e.values, e.summary, c.Rule6); return nil })
	g.Go(func() error { out[8] = Rule7(e.values, e.summary, c.Rule7); return nil })
	g.Go(func() error { out[9] = Rule8(e.values, e.summary, c.Rule8); return nil })
	_ = g.Wait()

	for i, key := range FlagKeys {
		e.record(key, out[i])
	}
}

func (e *Engine) record(key string, flags []int) []int {
	e.result.set(key, flags)
	e.logger.Debug("rule evaluated", "key", key, "n", len(flags), "flagged", e.result.Count(key))
	return copyInts(flags)
}
