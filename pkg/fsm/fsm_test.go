package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineCreation(t *testing.T) {
	var expect = map[State][]State{
		State("initial"):    {State("processing")},
		State("processing"): {State("error"), State("finished")},
	}
	m, err := NewMachine(State("initial"), WithTransitions(
		T(State("initial"), State("processing")),
		T(State("processing"), State("error"), State("finished")),
	))
	require.NoError(t, err)
	assert.Equal(t, expect, m.allowable)

	_, err = NewMachine(State(""))
	assert.Error(t, err)
	_, err = NewMachine(State("initial"), WithTransitions(T(State("initial"), State(""))))
	assert.Error(t, err)
}

func TestMachine(t *testing.T) {
	m, err := NewMachine(State("initial"), WithTransitions(
		T(State("initial"), State("processing")),
		T(State("processing"), State("error"), State("finished")),
	))
	require.NoError(t, err)
	assert.Equal(t, State("initial"), m.State())
	assert.True(t, m.Allowable(m.State(), State("processing")))
	assert.False(t, m.Allowable(m.State(), State("finished")))
	assert.False(t, m.Allowable(State("notexist"), State("processing")))
	assert.NoError(t, m.Transition(State("processing")))

	err = m.Transition(State("initial"))
	assert.IsType(t, TransitionNotAllowed{}, err)
	assert.Equal(t, State("processing"), m.State())
	assert.NoError(t, m.Transition("finished"))
}

func TestChart(t *testing.T) {
	tt := []struct {
		name     string
		observe  []bool
		changed  []bool
		previous []State
		final    State
	}{
		{
			name:     "first evaluation is always a change",
			observe:  []bool{false},
			changed:  []bool{true},
			previous: []State{Unknown},
			final:    InControl,
		},
		{
			name:     "repeated outcome",
			observe:  []bool{true, true, true},
			changed:  []bool{true, false, false},
			previous: []State{Unknown, OutOfControl, OutOfControl},
			final:    OutOfControl,
		},
		{
			name:     "recovery",
			observe:  []bool{false, true, true, false},
			changed:  []bool{true, true, false, true},
			previous: []State{Unknown, InControl, OutOfControl, OutOfControl},
			final:    InControl,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChart()
			assert.Equal(t, Unknown, c.State())
			for i, o := range tc.observe {
				from, changed := c.Observe(o)
				assert.Equal(t, tc.changed[i], changed, "observation %d", i)
				assert.Equal(t, tc.previous[i], from, "observation %d", i)
			}
			assert.Equal(t, tc.final, c.State())
			assert.Equal(t, StateOf(tc.observe[len(tc.observe)-1]), c.State())
		})
	}
}
