// Package swarm holds the particles of an archive-based swarm and the box
// bounded search space that owns them.
package swarm

import (
	"fmt"

	"github.com/rwcarlsen/fabso"
)

type Particle struct {
	Id int
	fabso.Point
	Vel  []float64
	Best fabso.Point
}

// NewParticle creates a particle at rest at pos with fitness val.  Its
// personal best starts out equal to its current state.
func NewParticle(id int, pos []float64, val float64) *Particle {
	p := fabso.NewPoint(pos, val)
	return &Particle{
		Id:    id,
		Point: p,
		Best:  p,
		Vel:   make([]float64, len(pos)),
	}
}

// Update moves p to newp and records newp as the personal best if it is
// strictly better.
func (p *Particle) Update(newp fabso.Point) {
	p.Point = newp
	if p.Val > p.Best.Val {
		p.Best = newp
	}
}

// Clone returns a deep copy of p.  Points are immutable so only the velocity
// needs copying.
func (p *Particle) Clone() *Particle {
	c := *p
	c.Vel = append([]float64(nil), p.Vel...)
	return &c
}

// Set overwrites every field of p with a copy of other's state.
func (p *Particle) Set(other *Particle) {
	*p = *other.Clone()
}

func (p *Particle) String() string {
	return fmt.Sprint(p.Pos())
}

type Population []*Particle

// Best returns the first particle holding the population's highest current
// fitness, or nil for an empty population.
func (pop Population) Best() *Particle {
	if len(pop) == 0 {
		return nil
	}

	best := pop[0]
	for _, p := range pop[1:] {
		if p.Val > best.Val {
			best = p
		}
	}
	return best
}

func (pop Population) Points() []fabso.Point {
	points := make([]fabso.Point, 0, len(pop))
	for _, p := range pop {
		points = append(points, p.Point)
	}
	return points
}
