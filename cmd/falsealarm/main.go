// Command falsealarm estimates how often each Nelson rule fires on data that is in control by evaluating many
// simulated sequences
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/BTBurke/nelson/pkg/rng"
	"github.com/BTBurke/nelson/pkg/rules"
)

type simulation struct {
	Loops  int
	Length int
	Procs  int
	Dist   string
	Seed   int64
}

func main() {
	pf := pflag.NewFlagSet("falsealarm", pflag.ContinueOnError)
	sim := simulation{}
	pf.IntVar(&sim.Loops, "loops", 10000, "Number of simulated sequences")
	pf.IntVar(&sim.Length, "length", 100, "Samples per sequence")
	pf.IntVar(&sim.Procs, "procs", runtime.NumCPU(), "Number of workers")
	pf.StringVar(&sim.Dist, "dist", "normal", "Sample distribution: normal, lognormal or poisson")
	pf.Int64Var(&sim.Seed, "seed", 0, "Seed for reproducible runs, 0 seeds from the clock")
	if err := pf.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	start := time.Now()
	rates, err := sim.run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.Info("simulation finished", "elapsed", time.Since(start), "loops", sim.Loops, "length", sim.Length)
	if err := printRates(os.Stdout, rates); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run splits the loops across workers.  Each worker owns its generator, seeded from the simulation seed and
// its worker number when a seed is given, and its own counts, so workers share nothing until the totals are
// added up.
func (s simulation) run() (map[string]float64, error) {
	if s.Loops < 1 || s.Length < 1 || s.Procs < 1 {
		return nil, fmt.Errorf("loops, length and procs must all be at least 1")
	}
	if s.Procs > s.Loops {
		s.Procs = s.Loops
	}

	counts := make([]map[string]int, s.Procs)
	var g errgroup.Group
	for w := 0; w < s.Procs; w++ {
		w := w
		loops := s.Loops / s.Procs
		if w < s.Loops%s.Procs {
			loops++
		}
		g.Go(func() error {
			gen, err := s.generator(w)
			if err != nil {
				return err
			}
			c, err := alarms(gen, loops, s.Length)
			counts[w] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rates := make(map[string]float64, len(rules.FlagKeys))
	for _, k := range rules.FlagKeys {
		total := 0
		for _, c := range counts {
			total += c[k]
		}
		rates[k] = float64(total) / float64(s.Loops)
	}
	return rates, nil
}

func (s simulation) generator(worker int) (rng.RNG, error) {
	var opts []rng.Option
	if s.Seed != 0 {
		opts = append(opts, rng.WithSeed(s.Seed+int64(worker)))
	}
	switch s.Dist {
	case "normal":
		return rng.NewNormalRNG(0.0, 1.0, opts...), nil
	case "lognormal":
		return rng.NewLogNormalRNG(5.0, 1.0, opts...), nil
	case "poisson":
		return rng.NewPoissonRNG(4.0, opts...), nil
	default:
		return nil, fmt.Errorf("unknown distribution %q", s.Dist)
	}
}

// alarms counts, for each rule output, the sequences in which it flagged at least one point
func alarms(gen rng.RNG, loops int, length int) (map[string]int, error) {
	counts := make(map[string]int)
	for i := 0; i < loops; i++ {
		e, err := rules.NewEngine(rng.Fill(gen, length))
		if err != nil {
			return nil, err
		}
		res := e.ApplyRules()
		for _, k := range rules.FlagKeys {
			if res.Count(k) > 0 {
				counts[k]++
			}
		}
	}
	return counts, nil
}

func printRates(w io.Writer, rates map[string]float64) error {
	for _, k := range rules.FlagKeys {
		if _, err := fmt.Fprintf(w, "%-14s %1.5f\n", k, rates[k]); err != nil {
			return err
		}
	}
	return nil
}
