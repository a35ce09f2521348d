package swarm

import (
	"fmt"

	"github.com/rwcarlsen/fabso"
	"gonum.org/v1/gonum/mat"
)

type Option func(*Space)

// Rand sets the random stream used to place particles.  The default stream
// is seeded with 1.
func Rand(rng fabso.Rng) Option {
	return func(s *Space) {
		s.rng = rng
	}
}

// Space owns a fixed-size population of particles confined to the box
// [Min, Max]^ndims.
type Space struct {
	Min, Max float64
	obj      fabso.Objectiver
	n        int
	ndims    int
	rng      fabso.Rng
	pop      Population
}

// New creates an empty search space.  Call Generate to populate it.
func New(min, max float64, obj fabso.Objectiver, n, ndims int, opts ...Option) (*Space, error) {
	if !(min < max) {
		return nil, fmt.Errorf("%w: bounds (%v, %v) must satisfy min < max", fabso.ErrValidation, min, max)
	} else if n < 0 {
		return nil, fmt.Errorf("%w: particle count %v is negative", fabso.ErrValidation, n)
	} else if ndims < 0 {
		return nil, fmt.Errorf("%w: dimension count %v is negative", fabso.ErrValidation, ndims)
	} else if obj == nil {
		return nil, fmt.Errorf("%w: nil objective", fabso.ErrConfig)
	}

	s := &Space{
		Min:   min,
		Max:   max,
		obj:   obj,
		n:     n,
		ndims: ndims,
		rng:   fabso.NewRng(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate populates the space.  With nil positions, particles are placed
// uniformly at random inside the bounds.  Otherwise positions must hold
// exactly N rows of Dims values each.  Every particle is evaluated.
func (s *Space) Generate(positions [][]float64) error {
	if positions == nil {
		return s.RandomRestart()
	}

	if len(positions) != s.n {
		return fmt.Errorf("%w: got %v positions, want %v", fabso.ErrValidation, len(positions), s.n)
	}
	for i, pos := range positions {
		if len(pos) != s.ndims {
			return fmt.Errorf("%w: position %v has %v dimensions, want %v", fabso.ErrValidation, i, len(pos), s.ndims)
		}
	}

	pop := make(Population, 0, s.n)
	for i, pos := range positions {
		p, err := s.newParticle(i, pos)
		if err != nil {
			return err
		}
		pop = append(pop, p)
	}
	s.pop = pop
	return nil
}

// RandomRestart discards the whole population and replaces it with freshly
// evaluated random particles.
func (s *Space) RandomRestart() error {
	pop := make(Population, 0, s.n)
	for i := 0; i < s.n; i++ {
		pos := make([]float64, s.ndims)
		for j := range pos {
			pos[j] = s.Min + s.rng.Float64()*(s.Max-s.Min)
		}
		p, err := s.newParticle(i, pos)
		if err != nil {
			return err
		}
		pop = append(pop, p)
	}
	s.pop = pop
	return nil
}

func (s *Space) newParticle(id int, pos []float64) (*Particle, error) {
	val, err := s.obj.Objective(pos)
	if err != nil {
		return nil, fmt.Errorf("evaluating particle %v: %w", id, err)
	}
	return NewParticle(id, pos, val), nil
}

// Particle returns a copy of the i'th particle.
func (s *Space) Particle(i int) *Particle { return s.pop[i].Clone() }

// Update replaces the i'th particle with a copy of p.
func (s *Space) Update(i int, p *Particle) { s.pop[i].Set(p) }

// Particles returns a copy of the current population.
func (s *Space) Particles() Population {
	pop := make(Population, len(s.pop))
	for i, p := range s.pop {
		pop[i] = p.Clone()
	}
	return pop
}

// Positions returns the current particle positions as an N x Dims matrix.
func (s *Space) Positions() *mat.Dense {
	if len(s.pop) == 0 || s.ndims == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(s.pop), s.ndims, nil)
	for i, p := range s.pop {
		m.SetRow(i, p.Pos())
	}
	return m
}

// N is the configured population size.
func (s *Space) N() int { return s.n }

// Len is the number of particles currently generated.
func (s *Space) Len() int { return len(s.pop) }

func (s *Space) Dims() int { return s.ndims }

func (s *Space) Objective() fabso.Objectiver { return s.obj }

// Vmax is the per-dimension speed limit, the full width of the bounds.
func (s *Space) Vmax() float64 { return s.Max - s.Min }
