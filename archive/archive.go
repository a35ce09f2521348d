// Package archive maintains a fixed-size set of elite positions used as
// extra attractors by the swarm.
package archive

import (
	"fmt"
	"math"
	"sort"

	"github.com/rwcarlsen/fabso"
	"gonum.org/v1/gonum/floats"
)

// Archive entries are independent copies of the points they were built or
// replaced from.  The number of entries never changes.
type Archive struct {
	entries []fabso.Point
}

// New builds an archive from the size fittest points.  Ties keep the order
// of points.
func New(points []fabso.Point, size int) (*Archive, error) {
	if size < 0 || size > len(points) {
		return nil, fmt.Errorf("%w: archive size %v outside [0, %v]", fabso.ErrValidation, size, len(points))
	}

	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return points[idx[i]].Val > points[idx[j]].Val
	})

	a := &Archive{entries: make([]fabso.Point, size)}
	for i := range a.entries {
		p := points[idx[i]]
		a.entries[i] = fabso.NewPoint(p.Pos(), p.Val)
	}
	return a, nil
}

func (a *Archive) Len() int { return len(a.entries) }

func (a *Archive) At(i int) fabso.Point { return a.entries[i] }

// Points returns a copy of the archive entries.
func (a *Archive) Points() []fabso.Point {
	return append([]fabso.Point(nil), a.entries...)
}

// Nearest returns the index of the entry closest to pos in Euclidean
// distance, or -1 for an empty archive.
func (a *Archive) Nearest(pos []float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, e := range a.entries {
		if dist := floats.Distance(e.Pos(), pos, 2); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// Replace overwrites the entry nearest to p when p is strictly fitter than
// it and reports whether it did.
func (a *Archive) Replace(p fabso.Point) bool {
	pos := p.Pos()
	i := a.Nearest(pos)
	if i < 0 || !(p.Val > a.entries[i].Val) {
		return false
	}
	a.entries[i] = fabso.NewPoint(pos, p.Val)
	return true
}
