package nelson

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTBurke/nelson/pkg/fsm"
	"github.com/BTBurke/nelson/pkg/metric"
	"github.com/BTBurke/nelson/pkg/rules"
)

var outputInput = []float64{
	0.90, 0.87, 0.92, 0.95, 0.97, 0.87, 0.89, 0.90, 0.91, 0.89,
	3.10, 3.12, 5.20, 0.95, 4.12, 3.98, 3.97, 3.50, 3.29, 3.90}

func testEvaluation(t *testing.T, values []float64) Evaluation {
	t.Helper()
	e, err := rules.NewEngine(values)
	require.NoError(t, err)
	res := e.ApplyRules()
	state := fsm.InControl
	if res.OutOfControl() {
		state = fsm.OutOfControl
	}
	return Evaluation{
		RunID:   "run-1",
		Chart:   metric.NewName("line3", map[string]string{"source": "rule2.txt"}),
		State:   state,
		Summary: e.Summary(),
		Result:  res,
	}
}

func TestWriteProm(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, writeResult(&b, FormatProm, testEvaluation(t, outputInput)))

	var p expfmt.TextParser
	families, err := p.TextToMetricFamilies(&b)
	require.NoError(t, err)
	assert.Len(t, families, 5)

	flagged, ok := families["nelson_flagged_points"]
	require.True(t, ok)
	assert.Len(t, flagged.GetMetric(), len(rules.FlagKeys))

	byRule := make(map[string]float64)
	for _, m := range flagged.GetMetric() {
		labels := make(map[string]string)
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		assert.Equal(t, "line3", labels["chart"])
		assert.Equal(t, "rule2.txt", labels["source"])
		byRule[labels["rule"]] = m.GetGauge().GetValue()
	}
	assert.Equal(t, 10.0, byRule[rules.KeyRule2])

	assert.Equal(t, 20.0, families["nelson_samples"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 1.0, families["nelson_out_of_control"].GetMetric()[0].GetGauge().GetValue())
}

func TestWriteJSON(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, writeResult(&b, FormatJSON, testEvaluation(t, outputInput)))

	var out struct {
		RunID   string                `json:"run_id"`
		Chart   string                `json:"chart"`
		State   string                `json:"state"`
		N       int                   `json:"n"`
		Results map[string][]*float64 `json:"results"`
	}
	require.NoError(t, json.Unmarshal(b.Bytes(), &out))
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "line3[source=rule2.txt]", out.Chart)
	assert.Equal(t, "out_of_control", out.State)
	assert.Equal(t, 20, out.N)
	assert.Len(t, out.Results, 12)
	require.Len(t, out.Results[rules.KeyRule2], 20)
	assert.Equal(t, 1.0, *out.Results[rules.KeyRule2][0])
	assert.Equal(t, 0.0, *out.Results[rules.KeyRule2][19])
}

func TestWriteJSONNaN(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, writeJSON(&b, testEvaluation(t, []float64{3, 3, 3})))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b.Bytes(), &out))
	assert.Equal(t, 0.0, out["stddev"])
	zscore := out["results"].(map[string]interface{})[rules.KeyZScore].([]interface{})
	require.Len(t, zscore, 3)
	for _, z := range zscore {
		assert.Nil(t, z)
	}
}

func TestWriteTextPositions(t *testing.T) {
	tt := []struct {
		name   string
		labels []string
		offset int
		expect string
	}{
		{name: "indices", expect: "rule2           10  0,1,2,3,4,5,6,7,8,9\n"},
		{name: "offset", offset: 5, expect: "rule2           10  5,6,7,8,9,10,11,12,13,14\n"},
		{name: "labels", labels: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "t"},
			expect: "rule2           10  a,b,c,d,e,f,g,h,i,j\n"},
		{name: "partial labels", labels: []string{"a", "", "c", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", ""},
			expect: "rule2           10  a,1,c,3,4,5,6,7,8,9\n"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			e := testEvaluation(t, outputInput)
			e.Labels = tc.labels
			e.Offset = tc.offset

			var b bytes.Buffer
			require.NoError(t, writeText(&b, e))
			lines := strings.SplitAfter(b.String(), "\n")
			assert.True(t, strings.HasPrefix(lines[0], "line3[source=rule2.txt] n=20 "))
			assert.Contains(t, lines, tc.expect)
		})
	}
}

func TestWriteTextUnflagged(t *testing.T) {
	e, err := rules.NewEngine(outputInput)
	require.NoError(t, err)
	e.Rule1(rules.Band{K: 10})

	var b bytes.Buffer
	require.NoError(t, writeText(&b, Evaluation{
		Chart:   metric.NewName("line3", nil),
		State:   fsm.InControl,
		Summary: e.Summary(),
		Result:  e.Result(),
	}))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "rule1            0  -", lines[1])
}
