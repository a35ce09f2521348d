package bench

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rwcarlsen/fabso"
	"github.com/rwcarlsen/fabso/fdr"
	"github.com/rwcarlsen/fabso/swarm"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Run describes a single optimizer run against a benchmark function.
type Run struct {
	Params      fdr.Params
	Particles   int
	Archive     int
	Generations int
	// RestartFreq <= 0 disables restarts.
	RestartFreq int
	Opts        []fdr.Option
}

// DefaultRun is a small run suited to quick comparisons.
var DefaultRun = Run{
	Params:      fdr.Params{W: 0.9, C1: 1, C2: 0, C3: 2},
	Particles:   30,
	Archive:     5,
	Generations: 50,
	RestartFreq: 20,
}

// Benchmark runs the swarm once on fn with a population seeded by seed and
// returns the per-generation results.
func Benchmark(fn Func, r Run, seed int64) ([]float64, error) {
	return BenchmarkObj(fn, Fitness(fn), r, seed)
}

// BenchmarkObj is Benchmark with a caller supplied objective, typically a
// wrapped Fitness(fn).
func BenchmarkObj(fn Func, obj fabso.Objectiver, r Run, seed int64) ([]float64, error) {
	low, up := fn.Bounds()
	s, err := swarm.New(low, up, obj, r.Particles, fn.Dims(), swarm.Rand(fabso.NewRng(seed)))
	if err != nil {
		return nil, err
	}
	if err := s.Generate(nil); err != nil {
		return nil, err
	}

	opts := append([]fdr.Option{}, r.Opts...)
	if r.RestartFreq > 0 {
		opts = append(opts, fdr.RestartFreq(r.RestartFreq))
	}
	o, err := fdr.New(s, r.Params, r.Generations, r.Archive, opts...)
	if err != nil {
		return nil, err
	}
	return o.Optimize()
}

// Trials runs n independent trials concurrently.  Trial i is passed seed+i
// and its results are stored at index i.  Each trial runs sequentially on
// its own goroutine, so run must not share mutable state between trials.
func Trials(ctx context.Context, n int, seed int64, run func(seed int64) ([]float64, error)) ([][]float64, error) {
	all := make([][]float64, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := run(seed + int64(i))
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			all[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

type Summary struct {
	Best float64
	Mean float64
	Std  float64
}

// Summarize describes the final result of each trial.  Trials with no
// generations are skipped.
func Summarize(all [][]float64) Summary {
	finals := make([]float64, 0, len(all))
	for _, results := range all {
		if len(results) > 0 {
			finals = append(finals, results[len(results)-1])
		}
	}
	if len(finals) == 0 {
		return Summary{}
	}

	mean, std := stat.MeanStdDev(finals, nil)
	if len(finals) == 1 {
		std = 0
	}
	return Summary{Best: floats.Min(finals), Mean: mean, Std: std}
}
