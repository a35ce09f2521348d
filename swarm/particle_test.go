package swarm

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rwcarlsen/fabso"
	"github.com/stretchr/testify/assert"
)

func TestNewParticle(t *testing.T) {
	pos := []float64{1, -2, 3}
	p := NewParticle(0, pos, 2)

	assert.Equal(t, fmt.Sprint(pos), p.String())
	assert.Equal(t, 2.0, p.Best.Val)
	assert.Equal(t, pos, p.Best.Pos())
	assert.Equal(t, []float64{0, 0, 0}, p.Vel)

	pos[0] = 99
	assert.Equal(t, 1.0, p.At(0), "particle aliases caller's position")
}

func TestParticleSet(t *testing.T) {
	p1 := NewParticle(0, []float64{1, 2}, 3)
	p2 := NewParticle(1, []float64{4, 5}, 9)
	p2.Vel[0] = 7

	p1.Set(p2)
	if diff := cmp.Diff(p2.Pos(), p1.Pos()); diff != "" {
		t.Errorf("position mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, p2.Val, p1.Val)
	assert.Equal(t, p2.Best.Val, p1.Best.Val)
	assert.Equal(t, []float64{7, 0}, p1.Vel)

	p2.Vel[0] = -1
	assert.Equal(t, 7.0, p1.Vel[0], "Set must copy the velocity")
}

func TestParticleUpdateBest(t *testing.T) {
	p := NewParticle(0, []float64{0}, 5)

	p.Update(fabso.NewPoint([]float64{1}, 3))
	assert.Equal(t, 3.0, p.Val)
	assert.Equal(t, 5.0, p.Best.Val, "worse point replaced personal best")

	p.Update(fabso.NewPoint([]float64{2}, 8))
	assert.Equal(t, 8.0, p.Best.Val)
	assert.Equal(t, []float64{2}, p.Best.Pos())

	p.Update(fabso.NewPoint([]float64{3}, 8))
	assert.Equal(t, []float64{2}, p.Best.Pos(), "equal fitness replaced personal best")
}

func TestPopulationBest(t *testing.T) {
	assert.Nil(t, Population{}.Best())

	pop := Population{
		NewParticle(0, []float64{0}, 1),
		NewParticle(1, []float64{1}, 4),
		NewParticle(2, []float64{2}, 4),
	}
	assert.Equal(t, 1, pop.Best().Id)
	assert.Len(t, pop.Points(), 3)
}
