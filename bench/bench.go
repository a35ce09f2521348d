// Package bench provides benchmark optimization functions from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization and tools for
// running the swarm against them.
package bench

import (
	"fmt"
	"math"
	"strings"

	"github.com/rwcarlsen/fabso"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
)

var Basic = []Func{
	Sphere{NDim: 2},
	Ackley{},
	CrossTray{},
	Eggholder{},
	HolderTable{},
	Schaffer2{},
	Styblinski{NDim: 2},
	Rosenbrock{NDim: 2},
}

var AllFuncs = append(append([]Func{}, Basic...),
	Sphere{NDim: 30},
	Styblinski{NDim: 10},
	Styblinski{NDim: 100},
	Rosenbrock{NDim: 10},
	Rosenbrock{NDim: 100},
)

// Func is a benchmark function to be minimized inside the box [low, up]^Dims.
type Func interface {
	Eval(v []float64) float64
	Bounds() (low, up float64)
	Dims() int
	Optima() []fabso.Point
	Name() string
}

// Fitness turns fn into an objective for the maximizing swarm.  The swarm
// reports negated fitness, so its results are directly values of fn.
func Fitness(fn Func) fabso.Func {
	return func(v []float64) float64 { return -fn.Eval(v) }
}

// Lookup returns the benchmark function called name.  ndim is used by the
// functions defined in any number of dimensions and ignored by the others.
func Lookup(name string, ndim int) (Func, error) {
	switch strings.ToLower(name) {
	case "sphere":
		return Sphere{NDim: ndim}, nil
	case "styblinski":
		return Styblinski{NDim: ndim}, nil
	case "rosenbrock":
		return Rosenbrock{NDim: ndim}, nil
	case "ackley":
		return Ackley{}, nil
	case "crosstray":
		return CrossTray{}, nil
	case "eggholder":
		return Eggholder{}, nil
	case "holdertable":
		return HolderTable{}, nil
	case "schaffer2":
		return Schaffer2{}, nil
	}
	return nil, fmt.Errorf("%w: unknown benchmark function %q", fabso.ErrConfig, name)
}

type Sphere struct {
	NDim int
}

func (fn Sphere) Name() string { return fmt.Sprintf("Sphere_%vD", fn.NDim) }

func (fn Sphere) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for _, v := range x {
		tot += v * v
	}
	return tot
}

func (fn Sphere) Bounds() (low, up float64) { return -10, 10 }

func (fn Sphere) Dims() int { return fn.NDim }

func (fn Sphere) Optima() []fabso.Point {
	return []fabso.Point{
		fabso.NewPoint(make([]float64, fn.NDim), 0),
	}
}

type Ackley struct{}

func (fn Ackley) Name() string { return "Ackley" }

func (fn Ackley) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -20*math.Exp(-0.2*math.Sqrt(0.5*(x*x+y*y))) -
		math.Exp(0.5*(math.Cos(2*math.Pi*x)+math.Cos(2*math.Pi*y))) +
		20 + math.E
}

func (fn Ackley) Bounds() (low, up float64) { return -5, 5 }

func (fn Ackley) Dims() int { return 2 }

func (fn Ackley) Optima() []fabso.Point {
	return []fabso.Point{
		fabso.NewPoint([]float64{0, 0}, 0),
	}
}

type CrossTray struct{}

func (fn CrossTray) Name() string { return "CrossTray" }

func (fn CrossTray) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -.0001 * math.Pow(abs(sin(x)*sin(y)*exp(abs(100-sqrt(x*x+y*y)/math.Pi)))+1, 0.1)
}

func (fn CrossTray) Bounds() (low, up float64) { return -10, 10 }

func (fn CrossTray) Dims() int { return 2 }

func (fn CrossTray) Optima() []fabso.Point {
	return []fabso.Point{
		fabso.NewPoint([]float64{1.34941, -1.34941}, -2.06261),
		fabso.NewPoint([]float64{1.34941, 1.34941}, -2.06261),
		fabso.NewPoint([]float64{-1.34941, 1.34941}, -2.06261),
		fabso.NewPoint([]float64{-1.34941, -1.34941}, -2.06261),
	}
}

type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -(y+47)*sin(sqrt(abs(y+x/2+47))) - x*sin(sqrt(abs(x-(y+47))))
}

func (fn Eggholder) Bounds() (low, up float64) { return -512, 512 }

func (fn Eggholder) Dims() int { return 2 }

func (fn Eggholder) Optima() []fabso.Point {
	return []fabso.Point{
		fabso.NewPoint([]float64{512, 404.2319}, -959.6407),
	}
}

type HolderTable struct{}

func (fn HolderTable) Name() string { return "HolderTable" }

func (fn HolderTable) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -abs(sin(x) * cos(y) * exp(abs(1-sqrt(x*x+y*y)/math.Pi)))
}

func (fn HolderTable) Bounds() (low, up float64) { return -10, 10 }

func (fn HolderTable) Dims() int { return 2 }

func (fn HolderTable) Optima() []fabso.Point {
	return []fabso.Point{
		fabso.NewPoint([]float64{8.05502, 9.66459}, -19.2085),
		fabso.NewPoint([]float64{-8.05502, 9.66459}, -19.2085),
		fabso.NewPoint([]float64{8.05502, -9.66459}, -19.2085),
		fabso.NewPoint([]float64{-8.05502, -9.66459}, -19.2085),
	}
}

type Schaffer2 struct{}

func (fn Schaffer2) Name() string { return "Schaffer2" }

func (fn Schaffer2) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return 0.5 + (math.Pow(sin(x*x-y*y), 2)-0.5)/math.Pow(1+.001*(x*x+y*y), 2)
}

func (fn Schaffer2) Bounds() (low, up float64) { return -100, 100 }

func (fn Schaffer2) Dims() int { return 2 }

func (fn Schaffer2) Optima() []fabso.Point {
	return []fabso.Point{
		fabso.NewPoint([]float64{0, 0}, 0),
	}
}

type Styblinski struct {
	NDim int
}

func (fn Styblinski) Name() string { return fmt.Sprintf("Styblinski_%vD", fn.NDim) }

func (fn Styblinski) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for _, v := range x {
		tot += math.Pow(v, 4) - 16*math.Pow(v, 2) + 5*v
	}
	return tot / 2
}

func (fn Styblinski) Bounds() (low, up float64) { return -5, 5 }

func (fn Styblinski) Dims() int { return fn.NDim }

func (fn Styblinski) Optima() []fabso.Point {
	pos := make([]float64, fn.NDim)
	for i := range pos {
		pos[i] = -2.903534
	}
	return []fabso.Point{
		fabso.NewPoint(pos, -39.16599*float64(fn.NDim)),
	}
}

type Rosenbrock struct {
	NDim int
}

func (fn Rosenbrock) Name() string { return fmt.Sprintf("Rosenbrock_%vD", fn.NDim) }

func (fn Rosenbrock) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for i := 0; i < fn.NDim-1; i++ {
		tot += 100*math.Pow(x[i+1]-x[i]*x[i], 2) + math.Pow(x[i]-1, 2)
	}
	return tot
}

func (fn Rosenbrock) Bounds() (low, up float64) { return -30, 30 }

func (fn Rosenbrock) Dims() int { return fn.NDim }

func (fn Rosenbrock) Optima() []fabso.Point {
	pos := make([]float64, fn.NDim)
	for i := range pos {
		pos[i] = 1
	}
	return []fabso.Point{
		fabso.NewPoint(pos, 0),
	}
}

func InsideBounds(p []float64, fn Func) bool {
	low, up := fn.Bounds()
	for i := range p {
		if p[i] < low || p[i] > up {
			return false
		}
	}
	return true
}
