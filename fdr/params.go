package fdr

import (
	"fmt"
	"math"

	"github.com/rwcarlsen/fabso"
)

// InertiaEnd is the weight the inertia schedule anneals towards.
const InertiaEnd = 0.4

// Params are the velocity update coefficients.
type Params struct {
	// W is the initial inertia weight.
	W float64
	// C1 weighs the pull towards a particle's personal best.
	C1 float64
	// C2 weighs the pull towards the global best.
	C2 float64
	// C3 weighs the pull towards the archive attractor.
	C3 float64
}

var paramKeys = []string{"w", "c1", "c2", "c3"}

// ParseParams builds Params from a key/value bag with the keys w, c1, c2 and
// c3.  Every key is required.
func ParseParams(m map[string]float64) (Params, error) {
	for _, k := range paramKeys {
		if _, ok := m[k]; !ok {
			return Params{}, fmt.Errorf("%w: missing parameter %q", fabso.ErrConfig, k)
		}
	}
	p := Params{W: m["w"], C1: m["c1"], C2: m["c2"], C3: m["c3"]}
	return p, p.Validate()
}

func (p Params) Validate() error {
	vals := []float64{p.W, p.C1, p.C2, p.C3}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: parameter %q is %v", fabso.ErrConfig, paramKeys[i], v)
		}
	}
	return nil
}

// Inertia returns the weight for generation t of g given the initial weight
// w0.  The 0.4 in the denominator is part of the schedule, so Inertia(w0, 0,
// g) is only approximately w0.
func Inertia(w0 float64, t, g int) float64 {
	return (w0 - InertiaEnd) * float64(g-t) / (float64(g) + 0.4)
}
