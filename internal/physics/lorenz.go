package physics

import (
	"math"

	"github.com/san-kum/eigenflow/internal/dynamo"
)

type Lorenz struct{ Sigma, Rho, Beta float64 }

func NewLorenz() *Lorenz        { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) StateDim() int { return 3 }

func (l *Lorenz) Derive(s dynamo.State) dynamo.State {
	return dynamo.State{l.Sigma * (s[1] - s[0]), s[0]*(l.Rho-s[2]) - s[1], s[0]*s[1] - l.Beta*s[2]}
}

// Equilibria returns the origin and, for Rho > 1, the two convection
// fixed points C+- = (+-sqrt(beta(rho-1)), +-sqrt(beta(rho-1)), rho-1).
func (l *Lorenz) Equilibria() []dynamo.State {
	eq := []dynamo.State{{0, 0, 0}}
	if l.Rho > 1 {
		c := math.Sqrt(l.Beta * (l.Rho - 1))
		eq = append(eq,
			dynamo.State{c, c, l.Rho - 1},
			dynamo.State{-c, -c, l.Rho - 1},
		)
	}
	return eq
}

// Section returns the z = rho-1 plane, the classical section through
// the convection fixed points.
func (l *Lorenz) Section() dynamo.Section {
	return planeSection{axis: 2, level: l.Rho - 1}
}

type planeSection struct {
	axis  int
	level float64
}

func (p planeSection) Crossing(x dynamo.State) float64 {
	return x[p.axis] - p.level
}
