// Package perturb constructs the seed perturbation for the Krylov
// sequence. A source is either an explicitly supplied vector or a
// synthesized random one; both are resolved once at configuration time,
// projected onto the symmetric subspace when a symmetry is given, and
// rescaled to the finite-difference magnitude EPS_du.
package perturb

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/flowmap"
)

// Source produces a perturbation vector of the requested dimension.
type Source interface {
	Vector(n int) (dynamo.State, error)
}

// Supplied wraps a caller-provided perturbation vector.
type Supplied struct {
	V     dynamo.State
	Sigma *flowmap.Symmetry
	EpsDu float64
}

func (s Supplied) Vector(n int) (dynamo.State, error) {
	if len(s.V) != n {
		return nil, fmt.Errorf("perturb: supplied vector has dim %d, want %d: %w",
			len(s.V), n, dynamo.ErrDimensionMismatch)
	}
	return finish(s.V.Clone(), s.Sigma, s.EpsDu)
}

// Synthesize builds a random smooth perturbation. Smoothness in (0,1)
// controls how fast mode amplitudes decay with wavenumber: each mode k
// carries amplitude (1-smoothness)^k, so higher smoothness concentrates
// energy at low wavenumbers. The same seed reproduces the same vector;
// this is the only source of randomness in the whole pipeline.
type Synthesize struct {
	Seed       int64
	Smoothness float64
	Sigma      *flowmap.Symmetry
	EpsDu      float64
}

func (s Synthesize) Vector(n int) (dynamo.State, error) {
	if s.Smoothness <= 0 || s.Smoothness >= 1 {
		return nil, fmt.Errorf("perturb: smoothness must be in (0,1), got %g", s.Smoothness)
	}
	if n < 1 {
		return nil, fmt.Errorf("perturb: dimension must be positive, got %d", n)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	decay := 1.0 - s.Smoothness

	kmax := n / 2
	if kmax < 1 {
		kmax = 1
	}

	v := make(dynamo.State, n)
	amp := 1.0
	for k := 0; k <= kmax; k++ {
		a := amp * (2*rng.Float64() - 1)
		phase := 2 * math.Pi * rng.Float64()
		for i := range v {
			v[i] += a * math.Cos(2*math.Pi*float64(k)*float64(i)/float64(n)+phase)
		}
		amp *= decay
	}

	return finish(v, s.Sigma, s.EpsDu)
}

func finish(v dynamo.State, sigma *flowmap.Symmetry, epsDu float64) (dynamo.State, error) {
	if epsDu <= 0 {
		return nil, fmt.Errorf("perturb: eps_du must be positive, got %g", epsDu)
	}
	if sigma != nil {
		if err := sigma.Validate(len(v)); err != nil {
			return nil, err
		}
		v = sigma.Project(v)
	}
	norm := v.Norm()
	if norm == 0 {
		return nil, fmt.Errorf("perturb: perturbation vanished: %w", dynamo.ErrZeroVector)
	}
	return v.Scale(epsDu / norm), nil
}
