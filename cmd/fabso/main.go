package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rwcarlsen/fabso"
	"github.com/rwcarlsen/fabso/bench"
	"github.com/rwcarlsen/fabso/config"
	"github.com/rwcarlsen/fabso/fdr"
	"github.com/rwcarlsen/fabso/history"
	"github.com/rwcarlsen/fabso/metrics"
	"github.com/rwcarlsen/fabso/swarm"
	"github.com/rwcarlsen/fabso/viz"
	"go.uber.org/zap"
)

var (
	cfgPath   = flag.String("config", "", "YAML or INI run configuration")
	fnName    = flag.String("func", "", "benchmark function (sphere, ackley, crosstray, eggholder, holdertable, schaffer2, styblinski, rosenbrock)")
	ndims     = flag.Int("dims", 0, "dimensions for n-dimensional functions")
	npar      = flag.Int("particles", 0, "swarm size")
	gens      = flag.Int("gens", 0, "number of generations")
	narch     = flag.Int("archive", 0, "archive size")
	restart   = flag.Int("restart", 0, "restart after this many generations without improvement (0 = never)")
	seed      = flag.Int64("seed", 0, "random seed (trial i uses seed+i)")
	trials    = flag.Int("trials", 0, "number of independent trials")
	cacheSize = flag.Int("cache", 0, "cache this many objective evaluations per trial (0 = off)")
	plotPath  = flag.String("plot", "", "write a plot of the best trial to this file")
	csvPath   = flag.String("csv", "", "write the best trial's results as CSV to this file ('-' for stdout)")
	dbPath    = flag.String("db", "", "record the run's history in this sqlite database (single trial only)")
	promPath  = flag.String("metrics", "", "write Prometheus metrics in text format to this file")
	logLevel  = flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat = flag.String("log-format", "", "log encoding (console or json)")
	traceEval = flag.Bool("trace-evals", false, "log every objective evaluation at debug level")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.Params = map[string]float64{
		"w":  bench.DefaultRun.Params.W,
		"c1": bench.DefaultRun.Params.C1,
		"c2": bench.DefaultRun.Params.C2,
		"c3": bench.DefaultRun.Params.C3,
	}
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return cfg, err
		}
	}

	// explicitly set flags override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "func":
			cfg.Run.Function = *fnName
		case "dims":
			cfg.Swarm.Dimensions = *ndims
		case "particles":
			cfg.Swarm.Particles = *npar
		case "gens":
			cfg.Swarm.Generations = *gens
		case "archive":
			cfg.Swarm.ArchiveSize = *narch
		case "restart":
			cfg.Swarm.RestartFreq = *restart
		case "seed":
			cfg.Swarm.Seed = *seed
		case "trials":
			cfg.Run.Trials = *trials
		case "cache":
			cfg.Run.CacheSize = *cacheSize
		case "plot":
			cfg.Output.Plot = *plotPath
		case "csv":
			cfg.Output.CSV = *csvPath
		case "db":
			cfg.Output.DB = *dbPath
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})
	return cfg, nil
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", fabso.ErrConfig, c.Level)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = c.Format
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	if c.Format == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}

func run(cfg config.Config, log *zap.Logger) error {
	params, err := cfg.FDRParams()
	if err != nil {
		return err
	}
	fn, err := bench.Lookup(cfg.Run.Function, cfg.Swarm.Dimensions)
	if err != nil {
		return err
	}
	low, up := fn.Bounds()
	if cfg.Swarm.Min < cfg.Swarm.Max {
		low, up = cfg.Swarm.Min, cfg.Swarm.Max
	}
	if cfg.Output.DB != "" && cfg.Run.Trials > 1 {
		return fmt.Errorf("%w: history recording needs a single trial, got %v", fabso.ErrConfig, cfg.Run.Trials)
	}

	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	if err != nil {
		return err
	}

	var rec *history.Recorder
	if cfg.Output.DB != "" {
		if rec, err = history.Open(cfg.Output.DB, fn.Dims()); err != nil {
			return err
		}
		defer rec.Close()
	}

	log.Info("starting",
		zap.String("func", fn.Name()),
		zap.Float64("min", low),
		zap.Float64("max", up),
		zap.Int("particles", cfg.Swarm.Particles),
		zap.Int("archive", cfg.Swarm.ArchiveSize),
		zap.Int("generations", cfg.Swarm.Generations),
		zap.Int("trials", cfg.Run.Trials),
	)

	trial := func(s int64) ([]float64, error) {
		tlog := log.With(zap.Int64("seed", s))

		var obj fabso.Objectiver = bench.Fitness(fn)
		if cfg.Run.CacheSize > 0 {
			cache, err := fabso.NewCacheObjectiver(obj, cfg.Run.CacheSize)
			if err != nil {
				return nil, err
			}
			obj = cache
		}
		if *traceEval {
			obj = fabso.NewObjectiveLogger(obj, tlog)
		}

		space, err := swarm.New(low, up, obj, cfg.Swarm.Particles, fn.Dims(), swarm.Rand(fabso.NewRng(s)))
		if err != nil {
			return nil, err
		}
		if err := space.Generate(nil); err != nil {
			return nil, err
		}

		opts := []fdr.Option{fdr.Logger(tlog), fdr.Observe(col.Trial(s))}
		if rec != nil {
			opts = append(opts, fdr.Observe(rec))
		}
		if cfg.Swarm.RestartFreq > 0 {
			opts = append(opts, fdr.RestartFreq(cfg.Swarm.RestartFreq))
		}
		o, err := fdr.New(space, params, cfg.Swarm.Generations, cfg.Swarm.ArchiveSize, opts...)
		if err != nil {
			return nil, err
		}
		results, err := o.Optimize()
		if err != nil {
			return nil, err
		}
		tlog.Info("trial done", zap.Float64("best", o.Best().Val), zap.Float64s("pos", o.Best().Pos()))
		return results, nil
	}

	all, err := bench.Trials(context.Background(), cfg.Run.Trials, cfg.Swarm.Seed, trial)
	if err != nil {
		return err
	}
	sum := bench.Summarize(all)
	log.Info("finished",
		zap.String("func", fn.Name()),
		zap.Float64("optimum", fn.Optima()[0].Val),
		zap.Float64("best", sum.Best),
		zap.Float64("mean", sum.Mean),
		zap.Float64("std", sum.Std),
	)

	best := bestTrial(all)
	if cfg.Output.CSV != "" {
		if err := writeCSV(cfg.Output.CSV, best); err != nil {
			return err
		}
	}
	if cfg.Output.Plot != "" {
		if err := viz.Plot(best, cfg.Output.Plot); err != nil {
			return fmt.Errorf("failed to write plot: %w", err)
		}
	}
	if *promPath != "" {
		if err := prometheus.WriteToTextfile(*promPath, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// bestTrial returns the trial with the lowest final result.
func bestTrial(all [][]float64) []float64 {
	var best []float64
	for _, results := range all {
		if len(results) == 0 {
			continue
		}
		if best == nil || results[len(results)-1] < best[len(best)-1] {
			best = results
		}
	}
	return best
}

func writeCSV(path string, results []float64) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return viz.WriteCSV(w, results)
}
