package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Dot(other State) float64 {
	sum := 0.0
	for i := range s {
		sum += s[i] * other[i]
	}
	return sum
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + other[i]
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] - other[i]
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// AddScaled returns s + factor*other without touching s.
func (s State) AddScaled(factor float64, other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + factor*other[i]
	}
	return result
}

// System is an autonomous ODE dx/dt = f(x).
type System interface {
	Derive(x State) State
	StateDim() int
}

// EquilibriumProvider is implemented by systems that know their
// fixed points analytically.
type EquilibriumProvider interface {
	Equilibria() []State
}

// Integrator advances a system state by one timestep.
type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// Section defines a Poincare section as the zero set of a crossing
// function h; a trajectory crosses the section when h changes sign
// from negative to positive.
type Section interface {
	Crossing(x State) float64
}

// SectionProvider is implemented by systems that carry a natural
// Poincare section.
type SectionProvider interface {
	Section() Section
}
