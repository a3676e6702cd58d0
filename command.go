package nelson

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/BTBurke/nelson/pkg/fsm"
	"github.com/BTBurke/nelson/pkg/input"
	"github.com/BTBurke/nelson/pkg/metric"
	"github.com/BTBurke/nelson/pkg/proto"
	"github.com/BTBurke/nelson/pkg/rules"
	"github.com/BTBurke/nelson/pkg/store"
)

// Exit statuses
const (
	ExitOK        = 0
	ExitError     = 1
	ExitViolation = 2
)

const stdinName = "-"

// history saves evaluated runs
type history interface {
	Save(ctx context.Context, r store.Run) error
}

// Command evaluates the Nelson rules against an input file, once or every time the file changes, and tracks
// whether the chart is in control
type Command struct {
	Config Config
	Input  string
	Chart  metric.Name

	chart        *fsm.Chart
	outOfControl bool
	report       ReportSender
	errors       ErrorReporter
	history      history
	logger       *slog.Logger
	stdin        io.Reader
	stdout       io.Writer
	cleanup      []func() error
}

// New prepares a command for the positional arguments, which must name a single input file or - for stdin
func New(args []string, options ...ConfigOption) (*Command, []error) {
	cfg, errs := newConfig(options...)
	switch {
	case len(args) == 0:
		errs = append(errs, fmt.Errorf("input file is required, use - to read from stdin"))
	case len(args) > 1:
		errs = append(errs, fmt.Errorf("only one input file may be given, got %d", len(args)))
	case args[0] == stdinName && cfg.Watch:
		errs = append(errs, fmt.Errorf("watch mode needs an input file, not stdin"))
	}
	if len(errs) > 0 {
		return nil, errs
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	errors := newErrorService(logger, cfg.errorReports)
	c := &Command{
		Config: cfg,
		Input:  args[0],
		Chart:  chartName(cfg, args[0]),
		chart:  fsm.NewChart(),
		report: nopSender{},
		errors: errors,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	c.cleanup = append(c.cleanup, func() error { errors.flush(); return nil })

	if cfg.ReportsEnabled() {
		c.report = newSenderService(cfg, errors, logger)
	}
	if cfg.Store != "" {
		s, err := store.Open(cfg.Store)
		if err != nil {
			return nil, []error{fmt.Errorf("failed to open history store: %w", err)}
		}
		c.history = s
		c.cleanup = append(c.cleanup, s.Close)
	}
	return c, nil
}

func chartName(cfg Config, path string) metric.Name {
	source := filepath.Base(path)
	if path == stdinName {
		source = "stdin"
	}
	labels := map[string]string{"source": source}
	if cfg.Window > 0 {
		labels["window"] = strconv.Itoa(cfg.Window)
	}
	return metric.NewName(cfg.ID, labels)
}

// Exec evaluates the input once, or in watch mode keeps evaluating until ctx is cancelled
func (c *Command) Exec(ctx context.Context) error {
	if c.Config.Watch {
		return c.watch(ctx)
	}
	_, err := c.Evaluate(ctx)
	return err
}

// Evaluate reads the input, applies the rules and writes the result.  The run is saved to the history store
// if one is configured, and a report is sent if the chart changed state.  Store and report failures do not
// fail the evaluation and go to the error reporter.
func (c *Command) Evaluate(ctx context.Context) (Evaluation, error) {
	seq, err := c.read()
	if err != nil {
		return Evaluation{}, err
	}
	values, err := seq.Float64s()
	if err != nil {
		return Evaluation{}, err
	}

	labels := seq.Labels
	offset := 0
	if c.Config.Window > 0 {
		series, err := metric.NewSeries(c.Config.Window, metric.WithName(c.Chart), metric.WithValues(values))
		if err != nil {
			return Evaluation{}, err
		}
		values = series.Values()
		offset = series.Offset()
		if len(labels) > 0 {
			labels = labels[offset:]
		}
	}

	opts := []rules.EngineOption{rules.WithConfig(c.Config.Rules), rules.WithLogger(c.logger)}
	if c.Config.Parallel {
		opts = append(opts, rules.WithParallel())
	}
	engine, err := rules.NewEngine(values, opts...)
	if err != nil {
		return Evaluation{}, err
	}
	res := engine.ApplyRules()

	c.outOfControl = res.OutOfControl()
	e := Evaluation{
		RunID:   uuid.NewString(),
		Chart:   c.Chart,
		State:   fsm.StateOf(res.OutOfControl()),
		Summary: engine.Summary(),
		Result:  res,
		Labels:  labels,
		Offset:  offset,
	}
	c.logger.Info("evaluated", "chart", c.Chart.String(), "run", e.RunID, "n", len(values), "state", string(e.State))

	if err := c.write(e); err != nil {
		return e, err
	}
	// the chart moves only after the result is written
	from, changed := c.chart.Observe(res.OutOfControl())

	if c.history != nil {
		run := store.Run{
			ID:         e.RunID,
			ConfigID:   c.Config.ID,
			CreatedAt:  time.Now(),
			N:          len(values),
			Mean:       e.Summary.Mean,
			StdDev:     e.Summary.StdDev,
			Violations: e.violations(),
		}
		if err := c.history.Save(ctx, run); err != nil {
			c.errors.ReportError(err)
		}
	}

	if changed {
		c.report.Send(ctx, Report{
			RunID:      e.RunID,
			ConfigID:   c.Config.ID,
			Chart:      c.Chart.String(),
			Reason:     reason(from, e.State),
			Summary:    e.Summary,
			Violations: e.violations(),
			CreatedAt:  time.Now(),
		})
	}
	return e, nil
}

// reason maps a chart state change to the reason sent in the report
func reason(from, to fsm.State) proto.ReportReason {
	switch {
	case to == fsm.OutOfControl:
		return proto.OutOfControl
	case from == fsm.OutOfControl:
		return proto.Recovered
	default:
		return proto.InControl
	}
}

func (c *Command) read() (*input.LabeledSequence, error) {
	if c.Input == stdinName {
		return input.ReadText(c.stdin)
	}
	f, err := os.Open(c.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	seq, err := input.ReadText(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Input, err)
	}
	return seq, nil
}

func (c *Command) write(e Evaluation) error {
	if c.Config.Output == "" {
		return writeResult(c.stdout, c.Config.Format, e)
	}
	f, err := os.Create(c.Config.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeResult(f, c.Config.Format, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExitCode returns the process exit status for the most recent Evaluation
func (c *Command) ExitCode() int {
	if c.Config.FailOnViolation && c.outOfControl {
		return ExitViolation
	}
	return ExitOK
}

// Wait blocks until all reports are sent
func (c *Command) Wait() error {
	return c.report.Wait()
}

// Close releases the history store and flushes pending error reports
func (c *Command) Close() (errs []error) {
	for _, f := range c.cleanup {
		if err := f(); err != nil {
			errs = append(errs, err)
		}
	}
	return
}
