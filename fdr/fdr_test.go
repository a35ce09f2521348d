package fdr

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rwcarlsen/fabso"
	"github.com/rwcarlsen/fabso/archive"
	"github.com/rwcarlsen/fabso/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const (
	low  = -10
	up   = 10
	gens = 50
)

var params = Params{W: 0.9, C1: 1, C2: 0, C3: 2}

func negsum(v []float64) float64 {
	tot := 0.0
	for _, x := range v {
		tot -= x
	}
	return tot
}

func negsphere(v []float64) float64 {
	tot := 0.0
	for _, x := range v {
		tot -= x * x
	}
	return tot
}

func newSpace(t *testing.T, obj fabso.Objectiver, n, ndims int, seed int64) *swarm.Space {
	s, err := swarm.New(low, up, obj, n, ndims, swarm.Rand(fabso.NewRng(seed)))
	require.NoError(t, err)
	require.NoError(t, s.Generate(nil))
	return s
}

func TestNewValidation(t *testing.T) {
	s := newSpace(t, fabso.Func(negsum), 5, 3, 42)

	_, err := New(s, params, -1, 3)
	assert.ErrorIs(t, err, fabso.ErrValidation, "negative generations")
	_, err = New(s, params, gens, 6)
	assert.ErrorIs(t, err, fabso.ErrValidation, "archive larger than swarm")
	_, err = New(s, params, gens, -1)
	assert.ErrorIs(t, err, fabso.ErrValidation, "negative archive")
	_, err = New(s, params, gens, 3, RestartFreq(0))
	assert.ErrorIs(t, err, fabso.ErrValidation, "restart frequency below 1")
	_, err = New(s, Params{W: math.NaN()}, gens, 3)
	assert.ErrorIs(t, err, fabso.ErrConfig)
	_, err = New(nil, params, gens, 3)
	assert.ErrorIs(t, err, fabso.ErrConfig)

	o, err := New(s, params, gens, 3, RestartFreq(20))
	require.NoError(t, err)
	assert.Equal(t, 0.9, o.Weight())
	o.updateInertia(1)
	assert.Equal(t, 0.48611, round5(o.Weight()))
}

func TestBuildArchive(t *testing.T) {
	s := newSpace(t, fabso.Func(negsum), 7, 4, 42)
	o, err := New(s, params, gens, 5)
	require.NoError(t, err)
	assert.Nil(t, o.Archive())

	require.NoError(t, o.BuildArchive())
	arch := o.Archive()
	require.Len(t, arch, 5)
	for i := 1; i < len(arch); i++ {
		assert.GreaterOrEqual(t, arch[i-1].Val, arch[i].Val)
	}
	assert.Equal(t, arch[0].Val, o.Best().Val)
	assert.Equal(t, s.Particles().Best().Val, o.Best().Val)
}

func TestBuildArchiveUnpopulated(t *testing.T) {
	s, err := swarm.New(low, up, fabso.Func(negsum), 4, 2)
	require.NoError(t, err)
	o, err := New(s, params, gens, 2)
	require.NoError(t, err)

	_, err = o.Optimize()
	assert.ErrorIs(t, err, fabso.ErrValidation)
}

func TestOptimizeLen(t *testing.T) {
	s := newSpace(t, fabso.Func(negsum), 7, 4, 42)
	o, err := New(s, params, gens, 5, RestartFreq(20))
	require.NoError(t, err)

	results, err := o.Optimize()
	require.NoError(t, err)
	assert.Len(t, results, gens)
}

func TestSingleStep(t *testing.T) {
	obj := fabso.Func(func(v []float64) float64 { return -v[0] * v[0] })
	s, err := swarm.New(low, up, obj, 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Generate([][]float64{{2}}))

	// The only archive entry is the particle itself, so the attractor falls
	// back to 0 and the c3 term alone moves the particle: v = 0.5*(0-2).
	o, err := New(s, Params{W: 0.9, C1: 1, C2: 1, C3: 0.5}, 1, 1)
	require.NoError(t, err)

	results, err := o.Optimize()
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, results)

	p := s.Particle(0)
	assert.Equal(t, []float64{1}, p.Pos())
	assert.Equal(t, []float64{-1}, p.Vel)
	assert.Equal(t, -1.0, p.Best.Val)
	assert.Equal(t, []float64{1}, o.Best().Pos())

	arch := o.Archive()
	require.Len(t, arch, 1)
	assert.Equal(t, []float64{1}, arch[0].Pos())
	assert.Equal(t, -1.0, arch[0].Val)
}

func TestClamping(t *testing.T) {
	obj := fabso.Func(func(v []float64) float64 { return -v[0] * v[0] })
	s, err := swarm.New(low, up, obj, 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Generate([][]float64{{9}}))

	o, err := New(s, Params{W: 0.9, C3: 10}, 1, 1)
	require.NoError(t, err)

	results, err := o.Optimize()
	require.NoError(t, err)
	assert.Equal(t, []float64{81}, results)

	p := s.Particle(0)
	assert.Equal(t, []float64{-20}, p.Vel, "velocity not clamped to vmax")
	assert.Equal(t, []float64{low}, p.Pos(), "position not clamped to bounds")
	assert.Equal(t, []float64{9}, p.Best.Pos())
}

func TestAttractor(t *testing.T) {
	arch, err := archive.New([]fabso.Point{
		fabso.NewPoint([]float64{0, 0}, 0),
		fabso.NewPoint([]float64{1, 2}, 3),
		fabso.NewPoint([]float64{3, 1}, 4),
	}, 2)
	require.NoError(t, err)

	pos := []float64{0, 0}
	cands := candidates(arch, pos)
	require.Len(t, cands, 2)
	// d=0: (4-0)/3 vs (3-0)/1
	assert.Equal(t, 1.0, attractor(cands, pos, 0, 0))
	// d=1: (4-0)/1 vs (3-0)/2
	assert.Equal(t, 1.0, attractor(cands, pos, 0, 1))

	// a particle sitting on an entry ignores it
	pos = []float64{3, 1}
	cands = candidates(arch, pos)
	require.Len(t, cands, 1)
	assert.Equal(t, 1.0, attractor(cands, pos, 4, 0))
	assert.Equal(t, 2.0, attractor(cands, pos, 4, 1))

	assert.Equal(t, 0.0, attractor(nil, pos, 4, 0))
}

func TestAttractorCoincidentCoordinate(t *testing.T) {
	cands := []fabso.Point{
		fabso.NewPoint([]float64{5, 1}, 1),
		fabso.NewPoint([]float64{2, 7}, 2),
	}
	// the second entry shares coordinate 0 with the particle: its ratio is
	// floored instead of dividing by zero
	assert.Equal(t, 2.0, attractor(cands, []float64{2, 0}, 0, 0))
}

func TestAttractorTie(t *testing.T) {
	cands := []fabso.Point{
		fabso.NewPoint([]float64{1}, 2),
		fabso.NewPoint([]float64{-1}, 2),
	}
	// equal ratios keep the entry ranked first
	assert.Equal(t, 1.0, attractor(cands, []float64{0}, 0, 0))
}

func TestArchiveSeenWithinGeneration(t *testing.T) {
	obj := fabso.Func(func(v []float64) float64 { return -v[0] * v[0] })
	s, err := swarm.New(low, up, obj, 2, 1)
	require.NoError(t, err)
	require.NoError(t, s.Generate([][]float64{{4}, {-6}}))

	o, err := New(s, Params{W: 0.9, C3: 0.5}, 1, 1)
	require.NoError(t, err)
	require.NoError(t, o.BuildArchive())

	// particle 0 sits on the only entry, falls back to 0 and moves to 2,
	// replacing the entry
	replaced, err := o.step(0)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, []float64{2}, s.Particle(0).Pos())
	arch := o.Archive()
	require.Len(t, arch, 1)
	assert.Equal(t, []float64{2}, arch[0].Pos())
	assert.Equal(t, -4.0, arch[0].Val)

	// particle 1 is pulled towards the new entry: v = 0.5*(2-(-6))
	replaced, err = o.step(1)
	require.NoError(t, err)
	assert.False(t, replaced)
	p := s.Particle(1)
	assert.Equal(t, []float64{4}, p.Vel)
	assert.Equal(t, []float64{-2}, p.Pos())
}

func TestNilLogger(t *testing.T) {
	s := newSpace(t, fabso.Func(func([]float64) float64 { return 1 }), 3, 2, 42)
	o, err := New(s, params, 4, 2, Logger(nil), RestartFreq(1))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		results, err := o.Optimize()
		require.NoError(t, err)
		assert.Len(t, results, 4)
	})
}

func TestInvariants(t *testing.T) {
	const n, ndims, narch = 8, 5, 4
	s := newSpace(t, fabso.Func(negsphere), n, ndims, 7)
	vmax := s.Vmax()

	prev := math.Inf(-1)
	ngen := 0
	obs := ObserverFunc(func(g Generation) error {
		assert.Equal(t, ngen, g.Iter)
		ngen++
		assert.Len(t, g.Archive, narch)
		assert.GreaterOrEqual(t, g.Best.Val, prev, "global best regressed")
		prev = g.Best.Val
		require.Len(t, g.Particles, n)
		rows, cols := g.Positions.Dims()
		require.Equal(t, n, rows)
		require.Equal(t, ndims, cols)
		for i, p := range g.Particles {
			assert.Equal(t, p.Pos(), mat.Row(nil, i, g.Positions))
			for d := 0; d < ndims; d++ {
				assert.LessOrEqual(t, math.Abs(p.Vel[d]), vmax)
				assert.GreaterOrEqual(t, p.At(d), float64(low))
				assert.LessOrEqual(t, p.At(d), float64(up))
			}
		}
		return nil
	})

	o, err := New(s, Params{W: 0.9, C1: 1.5, C2: 1.5, C3: 1}, gens, narch, RestartFreq(5), Observe(obs))
	require.NoError(t, err)
	results, err := o.Optimize()
	require.NoError(t, err)

	require.Len(t, results, gens)
	assert.Equal(t, gens, ngen)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i], results[i-1])
	}
	assert.Equal(t, -o.Best().Val, results[gens-1])
}

func TestRestart(t *testing.T) {
	const n = 4
	s := newSpace(t, fabso.Func(func([]float64) float64 { return 1 }), n, 2, 3)

	var restarts []int
	var evals []int
	obs := ObserverFunc(func(g Generation) error {
		if g.Restarted {
			restarts = append(restarts, g.Iter)
		}
		evals = append(evals, g.Evals)
		return nil
	})

	o, err := New(s, params, 10, 2, RestartFreq(3), Observe(obs))
	require.NoError(t, err)
	require.NoError(t, o.BuildArchive())
	best := o.Best()

	_, err = o.Optimize()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 8}, restarts)
	assert.Equal(t, []int{n, n, 2 * n, n, n, 2 * n, n, n, 2 * n, n}, evals)
	// restarts leave the global best alone
	assert.Equal(t, best.Pos(), o.Best().Pos())
}

func TestDeterministic(t *testing.T) {
	run := func() []float64 {
		s := newSpace(t, fabso.Func(negsphere), 10, 3, 11)
		o, err := New(s, Params{W: 0.9, C1: 1, C2: 1, C3: 1}, 30, 5, RestartFreq(4))
		require.NoError(t, err)
		results, err := o.Optimize()
		require.NoError(t, err)
		return results
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("seeded runs differ (-first +second):\n%s", diff)
	}
}

type countObj struct {
	n, failAt int
	err       error
}

func (o *countObj) Objective(v []float64) (float64, error) {
	o.n++
	if o.n >= o.failAt {
		return 0, o.err
	}
	return negsphere(v), nil
}

func TestObjectiveErr(t *testing.T) {
	const n = 5
	fail := errors.New("fake error")
	obj := &countObj{failAt: n + 2*n + 2, err: fail}
	s := newSpace(t, obj, n, 2, 1)

	o, err := New(s, params, gens, 2)
	require.NoError(t, err)
	results, err := o.Optimize()
	require.ErrorIs(t, err, fail)
	assert.Len(t, results, 2)
}

func TestObserverErr(t *testing.T) {
	stop := errors.New("stop")
	s := newSpace(t, fabso.Func(negsum), 3, 2, 1)
	o, err := New(s, params, gens, 2, Observe(ObserverFunc(func(g Generation) error {
		if g.Iter == 4 {
			return stop
		}
		return nil
	})))
	require.NoError(t, err)

	results, err := o.Optimize()
	require.ErrorIs(t, err, stop)
	assert.Len(t, results, 5)
}

func TestEmptySwarm(t *testing.T) {
	s := newSpace(t, fabso.Func(negsum), 0, 0, 1)
	o, err := New(s, params, 3, 0)
	require.NoError(t, err)

	results, err := o.Optimize()
	require.NoError(t, err)
	assert.Equal(t, []float64{math.Inf(1), math.Inf(1), math.Inf(1)}, results)
}
