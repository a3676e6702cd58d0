package metric

import (
	"fmt"
)

// Series is a fixed capacity ring buffer of samples.  Once full, each new sample replaces the oldest so the
// series always holds the trailing window of a longer sequence.
type Series struct {
	name   Name
	count  int
	values []float64
}

type SeriesOption func(s *Series) error

// NewSeries creates a series holding at most cap samples
func NewSeries(cap int, opts ...SeriesOption) (*Series, error) {
	if cap <= 0 {
		return nil, fmt.Errorf("series must be initialized with a capacity >= 1")
	}

	s := &Series{
		values: make([]float64, cap),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithName sets the chart name of the series
func WithName(n Name) SeriesOption {
	return func(s *Series) error {
		if n.Base() == "" {
			return fmt.Errorf("series name must be the non-empty string")
		}
		s.name = n
		return nil
	}
}

// WithValues records an existing set of samples in order.  Only the trailing cap samples are kept.
func WithValues(values []float64) SeriesOption {
	return func(s *Series) error {
		for _, v := range values {
			s.Record(v)
		}
		return nil
	}
}

// Record adds a new sample to the series
func (s *Series) Record(p float64) {
	s.values[s.nextIndex()] = p
	s.count++
}

// Values returns a copy of the retained samples from oldest to most recent.  Before the series is full only the
// recorded samples are returned.
func (s *Series) Values() []float64 {
	if s.count < len(s.values) {
		out := make([]float64, s.count)
		copy(out, s.values)
		return out
	}
	out := make([]float64, 0, len(s.values))
	oldest := s.nextIndex()
	return append(append(out, s.values[oldest:]...), s.values[:oldest]...)
}

// Offset returns the position in the full recorded sequence of the oldest retained sample
func (s *Series) Offset() int {
	if s.count < len(s.values) {
		return 0
	}
	return s.count - len(s.values)
}

// Len returns the number of retained samples
func (s *Series) Len() int {
	if s.count < len(s.values) {
		return s.count
	}
	return len(s.values)
}

// Count returns the total number of samples ever recorded
func (s *Series) Count() int {
	return s.count
}

// Name returns the chart name of the series
func (s *Series) Name() Name {
	return s.name
}

// nextIndex returns the slot of the oldest sample, which the next Record overwrites
func (s *Series) nextIndex() int {
	return s.count % len(s.values)
}
