// Package fabso holds the vocabulary shared by the fitness-distance-ratio
// archive-based swarm optimizer and its supporting packages.  Objective
// functions in this module are maximized: higher values are better.
package fabso

import (
	"errors"
	"math/rand"
)

var (
	// ErrConfig is returned when a required parameter is missing or unusable.
	ErrConfig = errors.New("configuration error")
	// ErrValidation is returned when construction arguments violate an
	// invariant (negative sizes, inverted bounds, mismatched positions).
	ErrValidation = errors.New("validation error")
)

type Point struct {
	pos []float64
	Val float64
}

// NewPoint returns a point holding its own copy of pos.
func NewPoint(pos []float64, val float64) Point {
	cpos := make([]float64, len(pos))
	copy(cpos, pos)
	return Point{pos: cpos, Val: val}
}

func (p Point) At(i int) float64 { return p.pos[i] }

func (p Point) Len() int { return len(p.pos) }

// Pos returns a copy of the point's position.
func (p Point) Pos() []float64 {
	pos := make([]float64, len(p.pos))
	copy(pos, p.pos)
	return pos
}

type Objectiver interface {
	// Objective evaluates the variables in v and returns the fitness.  The
	// objective must be framed so that higher values are better.  A returned
	// error aborts the optimization.
	Objective(v []float64) (float64, error)
}

// Func adapts a plain fitness function to the Objectiver interface.
type Func func([]float64) float64

func (fn Func) Objective(v []float64) (float64, error) { return fn(v), nil }

// Rng is the random stream used for population generation and restarts.
type Rng interface {
	Float64() float64
}

// NewRng returns a deterministic random stream for the given seed.
func NewRng(seed int64) Rng {
	return rand.New(rand.NewSource(seed))
}
