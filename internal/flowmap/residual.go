package flowmap

import (
	"fmt"

	"github.com/san-kum/eigenflow/internal/dynamo"
)

// Residual is the nonlinear residual operator G whose Jacobian spectrum
// the solver extracts. The three implementations form a closed set of
// variants selected at construction time:
//
//	PlainResidual:    G(x) = f^T(x) - x
//	SymmetryResidual: G(x) = sigma(f^T(x)) - x
//	PoincareResidual: G(x) = P(x) - x on the section return map P
//
// Eval must be a pure function of x for fixed configuration. CFL
// reports the diagnostic of the most recent evaluation.
type Residual interface {
	Eval(x dynamo.State) (dynamo.State, error)
	CFL() float64
}

// Symmetry is a signed permutation acting on state vectors, the vector
// representation of a discrete flow symmetry. Nil Perm means identity
// ordering; nil Sign means all +1.
type Symmetry struct {
	Perm []int     `yaml:"perm"`
	Sign []float64 `yaml:"sign"`
}

func (s *Symmetry) Validate(n int) error {
	if s.Perm != nil {
		if len(s.Perm) != n {
			return fmt.Errorf("symmetry: perm length %d, state dim %d: %w",
				len(s.Perm), n, dynamo.ErrDimensionMismatch)
		}
		seen := make([]bool, n)
		for _, p := range s.Perm {
			if p < 0 || p >= n || seen[p] {
				return fmt.Errorf("symmetry: perm is not a permutation of 0..%d", n-1)
			}
			seen[p] = true
		}
	}
	if s.Sign != nil {
		if len(s.Sign) != n {
			return fmt.Errorf("symmetry: sign length %d, state dim %d: %w",
				len(s.Sign), n, dynamo.ErrDimensionMismatch)
		}
		for i, v := range s.Sign {
			if v != 1 && v != -1 {
				return fmt.Errorf("symmetry: sign[%d] = %g, want +-1", i, v)
			}
		}
	}
	return nil
}

func (s *Symmetry) Apply(x dynamo.State) dynamo.State {
	result := make(dynamo.State, len(x))
	for i := range x {
		j := i
		if s.Perm != nil {
			j = s.Perm[i]
		}
		v := x[j]
		if s.Sign != nil {
			v *= s.Sign[i]
		}
		result[i] = v
	}
	return result
}

// Project maps x onto the symmetric subspace: (x + sigma(x))/2. For an
// involution this is the orthogonal projector onto the invariant
// directions.
func (s *Symmetry) Project(x dynamo.State) dynamo.State {
	return x.Add(s.Apply(x)).Scale(0.5)
}

type PlainResidual struct{ m *Map }

func NewPlain(m *Map) *PlainResidual { return &PlainResidual{m: m} }

func (r *PlainResidual) Eval(x dynamo.State) (dynamo.State, error) {
	fx, err := r.m.Advance(x)
	if err != nil {
		return nil, err
	}
	return fx.Sub(x), nil
}

func (r *PlainResidual) CFL() float64 { return r.m.CFL() }

type SymmetryResidual struct {
	m     *Map
	sigma *Symmetry
}

func NewSymmetry(m *Map, sigma *Symmetry) (*SymmetryResidual, error) {
	if err := sigma.Validate(m.sys.StateDim()); err != nil {
		return nil, err
	}
	return &SymmetryResidual{m: m, sigma: sigma}, nil
}

func (r *SymmetryResidual) Eval(x dynamo.State) (dynamo.State, error) {
	fx, err := r.m.Advance(x)
	if err != nil {
		return nil, err
	}
	return r.sigma.Apply(fx).Sub(x), nil
}

func (r *SymmetryResidual) CFL() float64 { return r.m.CFL() }

type PoincareResidual struct {
	m          *Map
	section    dynamo.Section
	maxHorizon float64
}

// NewPoincare builds the section return-map residual. maxHorizon bounds
// the search for the next crossing; zero means four map horizons.
func NewPoincare(m *Map, section dynamo.Section, maxHorizon float64) *PoincareResidual {
	if maxHorizon <= 0 {
		maxHorizon = 4 * m.horizon
	}
	return &PoincareResidual{m: m, section: section, maxHorizon: maxHorizon}
}

func (r *PoincareResidual) Eval(x dynamo.State) (dynamo.State, error) {
	px, err := r.m.AdvanceToSection(x, r.section, r.maxHorizon)
	if err != nil {
		return nil, err
	}
	return px.Sub(x), nil
}

func (r *PoincareResidual) CFL() float64 { return r.m.CFL() }
