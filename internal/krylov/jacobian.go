package krylov

import (
	"fmt"

	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/flowmap"
)

// Operator is the linear map the Arnoldi iteration probes. It is never
// materialized as a matrix; only its action on a vector is available.
type Operator interface {
	Apply(v dynamo.State) (dynamo.State, error)
}

// JacobianAction approximates the action of the Jacobian of G at a
// fixed base point x0 by a finite-difference directional derivative:
//
//	J*v ~= (G(x0 + eps*v) - G(x0)) / eps
//
// G(x0) is evaluated once at construction and cached for the lifetime
// of the Arnoldi run; x0 is borrowed read-only.
type JacobianAction struct {
	op    flowmap.Residual
	x0    dynamo.State
	gx0   dynamo.State
	epsDu float64
}

func NewJacobianAction(op flowmap.Residual, x0 dynamo.State, epsDu float64) (*JacobianAction, error) {
	if epsDu <= 0 {
		return nil, fmt.Errorf("krylov: eps_du must be positive, got %g", epsDu)
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("krylov: base point: %w", dynamo.ErrNotFinite)
	}

	gx0, err := op.Eval(x0)
	if err != nil {
		return nil, fmt.Errorf("krylov: base point evaluation: %w", err)
	}

	return &JacobianAction{op: op, x0: x0, gx0: gx0, epsDu: epsDu}, nil
}

// BaseResidualNorm reports |G(x0)|, the fixed-point residual of the
// base point.
func (j *JacobianAction) BaseResidualNorm() float64 {
	return j.gx0.Norm()
}

// Apply computes the directional derivative along v. The step is scaled
// so the displacement eps*v has norm ~= eps_du regardless of |v|,
// balancing truncation against round-off (Mack & Schmid, JCP 229
// (2010), eq. 15):
//
//	eps = eps_du        if |v| < eps_du
//	eps = eps_du / |v|  otherwise
func (j *JacobianAction) Apply(v dynamo.State) (dynamo.State, error) {
	if len(v) != len(j.x0) {
		return nil, fmt.Errorf("krylov: perturbation dim %d, base dim %d: %w",
			len(v), len(j.x0), dynamo.ErrDimensionMismatch)
	}

	eps := j.epsDu
	if norm := v.Norm(); norm >= j.epsDu {
		eps = j.epsDu / norm
	}

	gy, err := j.op.Eval(j.x0.AddScaled(eps, v))
	if err != nil {
		return nil, err
	}
	return gy.Sub(j.gx0).Scale(1 / eps), nil
}
