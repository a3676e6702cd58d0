package fsm

// Control chart states
const (
	Unknown      State = "unknown"
	InControl    State = "in_control"
	OutOfControl State = "out_of_control"
)

// Chart follows a control chart through successive evaluations.  It starts Unknown, moves to InControl or
// OutOfControl after the first evaluation and then flips between the two.
type Chart struct {
	m *Machine
}

// NewChart returns a chart in the Unknown state
func NewChart() *Chart {
	m, _ := NewMachine(Unknown, WithTransitions(
		T(Unknown, InControl, OutOfControl),
		T(InControl, OutOfControl),
		T(OutOfControl, InControl),
	))
	return &Chart{m: m}
}

// State returns the current chart state
func (c *Chart) State() State {
	return c.m.State()
}

// Observe records the outcome of an evaluation.  It returns the previous state and whether the state changed.
// Observing the same outcome twice in a row is not a change.
func (c *Chart) Observe(outOfControl bool) (State, bool) {
	from := c.m.State()
	to := StateOf(outOfControl)
	if from == to {
		return from, false
	}
	if err := c.m.Transition(to); err != nil {
		return from, false
	}
	return from, true
}

// StateOf returns the chart state that an evaluation outcome leads to
func StateOf(outOfControl bool) State {
	if outOfControl {
		return OutOfControl
	}
	return InControl
}
