package nelson

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BTBurke/nelson/pkg/fsm"
	"github.com/BTBurke/nelson/pkg/input"
	"github.com/BTBurke/nelson/pkg/proto"
	"github.com/BTBurke/nelson/pkg/rules"
	"github.com/BTBurke/nelson/pkg/store"
)

const rule2Text = "0.90\n0.87\n0.92\n0.95\n0.97\n0.87\n0.89\n0.90\n0.91\n0.89\n3.10\n3.12\n5.20\n0.95\n4.12\n3.98\n3.97\n3.50\n3.29\n3.90\n"

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, rpt Report) {
	m.Called(rpt.Reason)
}

func (m *mockSender) Wait() error {
	return nil
}

func newTestCommand(t *testing.T, args []string, opts ...ConfigOption) (*Command, *bytes.Buffer) {
	t.Helper()
	c, errs := New(args, opts...)
	require.Empty(t, errs)
	t.Cleanup(func() { c.Close() })
	var b bytes.Buffer
	c.stdout = &b
	return c, &b
}

func TestNewArgs(t *testing.T) {
	tt := []struct {
		name string
		args []string
		opts []ConfigOption
	}{
		{name: "no input", args: []string{}},
		{name: "two inputs", args: []string{"a.txt", "b.txt"}},
		{name: "watch stdin", args: []string{"-"}, opts: []ConfigOption{Watch()}},
		{name: "bad option", args: []string{"a.txt"}, opts: []ConfigOption{Format("xml")}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, errs := New(tc.args, tc.opts...)
			assert.Nil(t, c)
			assert.NotEmpty(t, errs)
		})
	}
}

func TestEvaluateGolden(t *testing.T) {
	tt := []struct {
		name  string
		input string
		opts  []ConfigOption
	}{
		{name: "text_rule8", input: "testdata/input/rule8.txt"},
		{name: "text_calm", input: "testdata/input/calm.txt"},
		{name: "text_labeled", input: "testdata/input/rule2_labeled.txt"},
		{name: "text_labeled_parallel", input: "testdata/input/rule2_labeled.txt", opts: []ConfigOption{Parallel()}},
	}
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, out := newTestCommand(t, []string{tc.input}, tc.opts...)
			_, err := c.Evaluate(context.Background())
			require.NoError(t, err)
			g.Assert(t, strings.TrimSuffix(tc.name, "_parallel"), out.Bytes())
		})
	}
}

func TestEvaluateWindowStdin(t *testing.T) {
	c, out := newTestCommand(t, []string{"-"}, ID("line3"), Window("14"))
	c.stdin = strings.NewReader(rule2Text)

	e, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, e.Offset)
	assert.Len(t, e.Result.Input, 14)
	assert.Equal(t, map[string][]int{
		rules.KeyRule6Points:  {6, 7, 8, 9},
		rules.KeyRule6Windows: {6, 7, 8, 9, 10},
	}, e.violations())

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "text_window", out.Bytes())
}

func TestEvaluateRuleOverride(t *testing.T) {
	c, _ := newTestCommand(t, []string{"testdata/input/rule2.txt"}, Set("rule2.n=11"), Set("rule6.count=5"))
	e, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, e.violations())
	assert.Equal(t, fsm.InControl, e.State)
	assert.Equal(t, ExitOK, c.ExitCode())
}

func TestEvaluateInvalidInput(t *testing.T) {
	c, _ := newTestCommand(t, []string{"-"})
	c.stdin = strings.NewReader("1.0\n2.0\nthree\n")
	_, err := c.Evaluate(context.Background())
	assert.ErrorIs(t, err, input.ErrInvalidInputFormat)

	c, _ = newTestCommand(t, []string{filepath.Join(t.TempDir(), "missing.txt")})
	_, err = c.Evaluate(context.Background())
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tt := []struct {
		name  string
		input string
		opts  []ConfigOption
		exp   int
	}{
		{name: "violation", input: "testdata/input/rule8.txt", exp: ExitOK},
		{name: "violation fail", input: "testdata/input/rule8.txt", opts: []ConfigOption{FailOnViolation()}, exp: ExitViolation},
		{name: "in control fail", input: "testdata/input/calm.txt", opts: []ConfigOption{FailOnViolation()}, exp: ExitOK},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestCommand(t, []string{tc.input}, tc.opts...)
			require.NoError(t, c.Exec(context.Background()))
			assert.Equal(t, tc.exp, c.ExitCode())
		})
	}
}

func TestEvaluateOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	c, out := newTestCommand(t, []string{"testdata/input/rule8.txt"}, Output(path), Format(FormatJSON))
	_, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "out_of_control"`)
}

func TestEvaluateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	c, _ := newTestCommand(t, []string{"testdata/input/rule8.txt"}, ID("line3"), Store(path))
	first, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	_, err = c.Evaluate(context.Background())
	require.NoError(t, err)
	require.Empty(t, c.Close())

	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "line3", runs[1].ConfigID)
	assert.Equal(t, 20, runs[1].N)
	assert.InDelta(t, 4.6965, runs[1].Mean, 1e-4)

	v, err := s.Violations(context.Background(), first.RunID)
	require.NoError(t, err)
	require.Len(t, v, 8)
	assert.Equal(t, store.Violation{Rule: rules.KeyRule8, Index: 4}, v[0])
}

func TestReportsOnStateChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	calm, err := os.ReadFile("testdata/input/calm.txt")
	require.NoError(t, err)
	rule8, err := os.ReadFile("testdata/input/rule8.txt")
	require.NoError(t, err)

	c, _ := newTestCommand(t, []string{path})
	mocks := new(mockSender)
	c.report = mocks
	mocks.On("Send", proto.InControl).Once()
	mocks.On("Send", proto.OutOfControl).Once()
	mocks.On("Send", proto.Recovered).Once()

	steps := []struct {
		data  []byte
		state fsm.State
	}{
		{data: calm, state: fsm.InControl},
		{data: calm, state: fsm.InControl},
		{data: rule8, state: fsm.OutOfControl},
		{data: rule8, state: fsm.OutOfControl},
		{data: calm, state: fsm.InControl},
	}
	for i, s := range steps {
		require.NoError(t, os.WriteFile(path, s.data, 0644))
		e, err := c.Evaluate(context.Background())
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, s.state, e.State, "step %d", i)
	}
	mocks.AssertExpectations(silenceT(t))
	mocks.AssertNumberOfCalls(t, "Send", 3)
}

func TestFailedWriteKeepsChartState(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestCommand(t, []string{"testdata/input/rule8.txt"}, Output(filepath.Join(dir, "missing", "result.txt")))
	mocks := new(mockSender)
	c.report = mocks
	mocks.On("Send", proto.OutOfControl).Once()

	_, err := c.Evaluate(context.Background())
	require.Error(t, err)
	assert.Equal(t, fsm.Unknown, c.chart.State())
	mocks.AssertNotCalled(t, "Send", proto.OutOfControl)

	c.Config.Output = filepath.Join(dir, "result.txt")
	e, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fsm.OutOfControl, e.State)
	assert.Equal(t, fsm.OutOfControl, c.chart.State())
	mocks.AssertExpectations(silenceT(t))
}

func TestReason(t *testing.T) {
	tt := []struct {
		from fsm.State
		to   fsm.State
		exp  proto.ReportReason
	}{
		{from: fsm.Unknown, to: fsm.InControl, exp: proto.InControl},
		{from: fsm.Unknown, to: fsm.OutOfControl, exp: proto.OutOfControl},
		{from: fsm.InControl, to: fsm.OutOfControl, exp: proto.OutOfControl},
		{from: fsm.OutOfControl, to: fsm.InControl, exp: proto.Recovered},
	}
	for _, tc := range tt {
		t.Run(tc.exp.String(), func(t *testing.T) {
			assert.Equal(t, tc.exp, reason(tc.from, tc.to))
		})
	}
}
