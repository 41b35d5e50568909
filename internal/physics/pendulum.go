package physics

import (
	"math"

	"github.com/san-kum/eigenflow/internal/dynamo"
)

// Pendulum is a damped planar pendulum: theta'' = -(g/L) sin(theta) - c theta'.
type Pendulum struct {
	G, L, Damping float64
}

func NewPendulum() *Pendulum      { return &Pendulum{9.81, 1.0, 0.5} }
func (p *Pendulum) StateDim() int { return 2 }

func (p *Pendulum) Derive(s dynamo.State) dynamo.State {
	return dynamo.State{s[1], -(p.G/p.L)*math.Sin(s[0]) - p.Damping*s[1]}
}

// Equilibria returns the hanging and inverted rest states.
func (p *Pendulum) Equilibria() []dynamo.State {
	return []dynamo.State{{0, 0}, {math.Pi, 0}}
}

func (p *Pendulum) Section() dynamo.Section {
	return planeSection{axis: 1, level: 0}
}
