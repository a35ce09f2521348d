// Package fdr implements the fitness-distance-ratio archive-based swarm
// optimizer.  Alongside the usual personal and global best, each particle is
// pulled per dimension towards the archive entry with the highest ratio of
// fitness gain to coordinate distance.
package fdr

import (
	"fmt"
	"math"

	"github.com/rwcarlsen/fabso"
	"github.com/rwcarlsen/fabso/archive"
	"github.com/rwcarlsen/fabso/swarm"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// distFloor keeps the fitness-distance ratio finite for coincident
// coordinates.
const distFloor = 1e-99

// Generation summarizes one completed generation for observers.
type Generation struct {
	Iter    int
	Inertia float64
	// Best is the global best after the generation.
	Best fabso.Point
	// Evals is the number of objective evaluations performed, including
	// those of a restart.
	Evals int
	// Replaced is the number of archive entries overwritten.
	Replaced  int
	Restarted bool
	// Particles and Archive are copies taken after the generation (and
	// after any restart).
	Particles swarm.Population
	Archive   []fabso.Point
	// Positions holds the particle positions row by row in the order of
	// Particles.
	Positions *mat.Dense
}

// Observer is notified after every generation.  A returned error aborts the
// run.
type Observer interface {
	Generation(g Generation) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(g Generation) error

func (fn ObserverFunc) Generation(g Generation) error { return fn(g) }

type Option func(*Optimizer)

// RestartFreq re-randomizes the swarm after n consecutive generations
// without global best improvement.  By default the swarm is never
// restarted.
func RestartFreq(n int) Option {
	return func(o *Optimizer) {
		o.restartFreq = n
	}
}

func Logger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		if l == nil {
			l = zap.NewNop()
		}
		o.log = l
	}
}

func Observe(obs ...Observer) Option {
	return func(o *Optimizer) {
		o.observers = append(o.observers, obs...)
	}
}

type Optimizer struct {
	Params
	space       *swarm.Space
	generations int
	archiveSize int
	restartFreq int
	log         *zap.Logger
	observers   []Observer

	w    float64
	arch *archive.Archive
	best fabso.Point
}

// New creates an optimizer running generations iterations over the
// particles of space, keeping archiveSize elite positions.
func New(space *swarm.Space, p Params, generations, archiveSize int, opts ...Option) (*Optimizer, error) {
	if space == nil {
		return nil, fmt.Errorf("%w: nil search space", fabso.ErrConfig)
	} else if err := p.Validate(); err != nil {
		return nil, err
	}

	o := &Optimizer{
		Params:      p,
		space:       space,
		generations: generations,
		archiveSize: archiveSize,
		restartFreq: math.MaxInt,
		log:         zap.NewNop(),
		w:           p.W,
	}
	for _, opt := range opts {
		opt(o)
	}

	if generations < 0 {
		return nil, fmt.Errorf("%w: generations %v is negative", fabso.ErrValidation, generations)
	} else if archiveSize < 0 || archiveSize > space.N() {
		return nil, fmt.Errorf("%w: archive size %v outside [0, %v]", fabso.ErrValidation, archiveSize, space.N())
	} else if o.restartFreq < 1 {
		return nil, fmt.Errorf("%w: restart frequency %v is less than 1", fabso.ErrValidation, o.restartFreq)
	}
	return o, nil
}

// Weight is the current inertia weight.  It equals Params.W until the first
// generation starts.
func (o *Optimizer) Weight() float64 { return o.w }

// Best returns the best point seen so far.
func (o *Optimizer) Best() fabso.Point { return o.best }

// Archive returns a copy of the archive entries, or nil before the archive
// is built.
func (o *Optimizer) Archive() []fabso.Point {
	if o.arch == nil {
		return nil
	}
	return o.arch.Points()
}

// BuildArchive fills the archive with the fittest particles of the current
// population and resets the global best to the population's fittest
// particle.
func (o *Optimizer) BuildArchive() error {
	if o.space.Len() != o.space.N() {
		return fmt.Errorf("%w: search space holds %v particles, want %v", fabso.ErrValidation, o.space.Len(), o.space.N())
	}

	points := o.space.Particles().Points()
	arch, err := archive.New(points, o.archiveSize)
	if err != nil {
		return err
	}
	o.arch = arch

	o.best = fabso.Point{Val: math.Inf(-1)}
	if len(points) > 0 {
		vals := make([]float64, len(points))
		for i, p := range points {
			vals[i] = p.Val
		}
		o.best = points[floats.MaxIdx(vals)]
	}
	return nil
}

func (o *Optimizer) updateInertia(t int) {
	o.w = Inertia(o.Params.W, t, o.generations)
}

// Optimize runs every generation and returns the negated global best value
// after each one.
func (o *Optimizer) Optimize() ([]float64, error) {
	if err := o.BuildArchive(); err != nil {
		return nil, err
	}

	results := make([]float64, 0, o.generations)
	noImprove := 0
	bestOld := o.best.Val
	for t := 0; t < o.generations; t++ {
		o.updateInertia(t)

		replaced := 0
		for i := 0; i < o.space.Len(); i++ {
			ok, err := o.step(i)
			if err != nil {
				return results, fmt.Errorf("generation %v: %w", t, err)
			}
			if ok {
				replaced++
			}
		}
		evals := o.space.Len()

		results = append(results, -o.best.Val)

		if o.best.Val == bestOld {
			noImprove++
		} else {
			noImprove = 0
		}
		restarted := false
		if noImprove == o.restartFreq {
			o.log.Info("no improvement, restarting swarm",
				zap.Int("generation", t),
				zap.Int("stagnant", noImprove),
				zap.Float64("best", o.best.Val),
			)
			if err := o.space.RandomRestart(); err != nil {
				return results, fmt.Errorf("generation %v: restart: %w", t, err)
			}
			evals += o.space.Len()
			noImprove = 0
			restarted = true
		}
		bestOld = o.best.Val

		o.log.Debug("generation complete",
			zap.Int("generation", t),
			zap.Float64("inertia", o.w),
			zap.Float64("best", o.best.Val),
			zap.Int("archive_replaced", replaced),
		)
		if err := o.notify(Generation{
			Iter:      t,
			Inertia:   o.w,
			Best:      o.best,
			Evals:     evals,
			Replaced:  replaced,
			Restarted: restarted,
		}); err != nil {
			return results, fmt.Errorf("generation %v: %w", t, err)
		}
	}
	return results, nil
}

func (o *Optimizer) notify(g Generation) error {
	if len(o.observers) == 0 {
		return nil
	}
	g.Particles = o.space.Particles()
	g.Archive = o.arch.Points()
	g.Positions = o.space.Positions()
	for _, obs := range o.observers {
		if err := obs.Generation(g); err != nil {
			return err
		}
	}
	return nil
}

// step moves the i'th particle, evaluates it and folds the result into the
// personal best, global best and archive.  It reports whether an archive
// entry was replaced.
func (o *Optimizer) step(i int) (bool, error) {
	p := o.space.Particle(i)
	pos := p.Pos()
	cands := candidates(o.arch, pos)

	vel := make([]float64, len(pos))
	newpos := make([]float64, len(pos))
	for d := range pos {
		pnd := attractor(cands, pos, p.Val, d)
		vel[d], newpos[d] = o.velocityPosition(p, d, pnd)
	}

	val, err := o.space.Objective().Objective(newpos)
	if err != nil {
		return false, fmt.Errorf("particle %v: %w", i, err)
	}
	np := fabso.NewPoint(newpos, val)
	p.Vel = vel
	p.Update(np)
	if val > o.best.Val {
		o.best = np
	}
	replaced := o.arch.Replace(np)

	o.space.Update(i, p)
	return replaced, nil
}

// candidates returns the archive entries eligible as attractors for a
// particle at pos: those not sitting exactly on it.
func candidates(arch *archive.Archive, pos []float64) []fabso.Point {
	cands := make([]fabso.Point, 0, arch.Len())
	for j := 0; j < arch.Len(); j++ {
		e := arch.At(j)
		if floats.Equal(e.Pos(), pos) {
			continue
		}
		cands = append(cands, e)
	}
	return cands
}

// attractor picks, for dimension d, the coordinate of the candidate with the
// largest fitness-distance ratio relative to a particle at pos with fitness
// val.  The first maximum wins.  With no usable candidate it returns 0.
func attractor(cands []fabso.Point, pos []float64, val float64, d int) float64 {
	pnd, best := 0.0, math.Inf(-1)
	for _, e := range cands {
		ratio := (e.Val - val) / math.Max(math.Abs(e.At(d)-pos[d]), distFloor)
		if ratio > best {
			best, pnd = ratio, e.At(d)
		}
	}
	return pnd
}

func (o *Optimizer) velocityPosition(p *swarm.Particle, d int, pnd float64) (vel, pos float64) {
	x := p.At(d)
	vel = o.w*p.Vel[d] +
		o.C1*(p.Best.At(d)-x) +
		o.C2*(o.best.At(d)-x) +
		o.C3*(pnd-x)

	vmax := o.space.Vmax()
	vel = math.Min(vmax, math.Max(-vmax, vel))
	pos = math.Min(o.space.Max, math.Max(o.space.Min, x+vel))
	return vel, pos
}
