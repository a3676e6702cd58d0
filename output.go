package nelson

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/BTBurke/nelson/pkg/fsm"
	"github.com/BTBurke/nelson/pkg/metric"
	"github.com/BTBurke/nelson/pkg/rules"
	"github.com/BTBurke/nelson/pkg/stat"
)

// Evaluation is the outcome of one run of the rules against the input
type Evaluation struct {
	RunID   string
	Chart   metric.Name
	State   fsm.State
	Summary stat.Summary
	Result  rules.Result
	Labels  []string
	// Offset is the position of the first evaluated sample in the full input when a window is applied
	Offset  int
}

// violations returns the flagged positions of every rule output that flagged anything, shifted by the window
// offset so they refer to positions in the full input
func (e Evaluation) violations() map[string][]int {
	out := make(map[string][]int)
	for _, k := range rules.FlagKeys {
		idx := e.Result.Violations(k)
		if len(idx) == 0 {
			continue
		}
		for i := range idx {
			idx[i] += e.Offset
		}
		out[k] = idx
	}
	return out
}

func writeResult(w io.Writer, format string, e Evaluation) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, e)
	case FormatProm:
		return writeProm(w, e)
	default:
		return writeText(w, e)
	}
}

// writeText writes a summary line followed by one line per rule output with its flag count and the flagged
// positions, or the sample labels when the input was labeled
func writeText(w io.Writer, e Evaluation) error {
	s := e.Result
	summary := fmt.Sprintf("%s n=%d mean=%s stddev=%s state=%s\n",
		e.Chart, len(s.Input), fixed(e.Summary.Mean), fixed(e.Summary.StdDev), e.State)
	if _, err := io.WriteString(w, summary); err != nil {
		return err
	}

	v := e.violations()
	for _, k := range rules.FlagKeys {
		if !s.Has(k) {
			continue
		}
		where := "-"
		if idx, ok := v[k]; ok {
			where = e.positions(idx)
		}
		if _, err := fmt.Fprintf(w, "%-14s %3d  %s\n", k, len(v[k]), where); err != nil {
			return err
		}
	}
	return nil
}

func (e Evaluation) positions(idx []int) string {
	parts := make([]string, len(idx))
	for i, x := range idx {
		label := ""
		if j := x - e.Offset; j >= 0 && j < len(e.Labels) {
			label = e.Labels[j]
		}
		if label != "" {
			parts[i] = label
		} else {
			parts[i] = strconv.Itoa(x)
		}
	}
	return strings.Join(parts, ",")
}

type jsonResult struct {
	RunID   string                `json:"run_id"`
	Chart   string                `json:"chart"`
	State   string                `json:"state"`
	N       int                   `json:"n"`
	Mean    *float64              `json:"mean"`
	StdDev  *float64              `json:"stddev"`
	Offset  int                   `json:"offset"`
	Labels  []string              `json:"labels,omitempty"`
	Results map[string][]*float64 `json:"results"`
}

// writeJSON writes the full result map.  NaN and infinite values, which JSON cannot represent, are written as
// null.
func writeJSON(w io.Writer, e Evaluation) error {
	out := jsonResult{
		RunID:   e.RunID,
		Chart:   e.Chart.String(),
		State:   string(e.State),
		N:       len(e.Result.Input),
		Mean:    finite(e.Summary.Mean),
		StdDev:  finite(e.Summary.StdDev),
		Offset:  e.Offset,
		Labels:  e.Labels,
		Results: make(map[string][]*float64),
	}
	for k, values := range e.Result.Map() {
		col := make([]*float64, len(values))
		for i, v := range values {
			col[i] = finite(v)
		}
		out.Results[k] = col
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeProm writes the evaluation in the Prometheus text exposition format: flagged point counts per rule
// output, the summary statistics and whether the chart is out of control
func writeProm(w io.Writer, e Evaluation) error {
	labels := e.Chart.Labels()
	labels["chart"] = e.Chart.Base()

	v := e.violations()
	var flagged []*dto.Metric
	for _, k := range rules.FlagKeys {
		if !e.Result.Has(k) {
			continue
		}
		l := map[string]string{"rule": k}
		for name, value := range labels {
			l[name] = value
		}
		flagged = append(flagged, gauge(l, float64(len(v[k]))))
	}

	out := 0.0
	if e.Result.OutOfControl() {
		out = 1.0
	}
	families := []*dto.MetricFamily{
		family("nelson_flagged_points", "Number of points flagged by each rule", flagged),
		family("nelson_samples", "Number of samples evaluated", []*dto.Metric{gauge(labels, float64(len(e.Result.Input)))}),
		family("nelson_mean", "Mean of the evaluated samples", []*dto.Metric{gauge(labels, e.Summary.Mean)}),
		family("nelson_stddev", "Population standard deviation of the evaluated samples", []*dto.Metric{gauge(labels, e.Summary.StdDev)}),
		family("nelson_out_of_control", "1 if any rule flagged a point", []*dto.Metric{gauge(labels, out)}),
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func family(name, help string, metrics []*dto.Metric) *dto.MetricFamily {
	t := dto.MetricType_GAUGE
	return &dto.MetricFamily{
		Name:   &name,
		Help:   &help,
		Type:   &t,
		Metric: metrics,
	}
}

func gauge(labels map[string]string, value float64) *dto.Metric {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	m := &dto.Metric{Gauge: &dto.Gauge{Value: &value}}
	for _, k := range names {
		name, v := k, labels[k]
		m.Label = append(m.Label, &dto.LabelPair{Name: &name, Value: &v})
	}
	return m
}

func fixed(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
