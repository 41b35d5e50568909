package krylov

import (
	"context"
	"fmt"

	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/flowmap"
	"github.com/san-kum/eigenflow/internal/perturb"
)

const (
	DefaultEpsDu       = 1e-7
	DefaultResidualTol = 1e-6
)

type SolveOptions struct {
	// EpsDu is the finite-difference displacement magnitude.
	EpsDu float64

	// ResidualTol is the fixed-point tolerance the base point must
	// satisfy before any Arnoldi work begins.
	ResidualTol float64

	Arnoldi Options
}

// Report is the full outcome of an eigenvalue run: the extracted
// spectrum plus the diagnostics the driver logs.
type Report struct {
	BaseResidual float64
	CFL          float64
	Result       *Result
}

// Solve runs the whole pipeline: verify |G(x0)| is below tolerance,
// resolve the seed perturbation, iterate, extract. An invalid base
// point or a diverging evaluation aborts with an error; algorithmic
// non-convergence is surfaced as data on the Report.
func Solve(ctx context.Context, op flowmap.Residual, x0 dynamo.State, seed perturb.Source, opts SolveOptions, onStep func(StepInfo)) (*Report, error) {
	if opts.EpsDu <= 0 {
		opts.EpsDu = DefaultEpsDu
	}
	if opts.ResidualTol <= 0 {
		opts.ResidualTol = DefaultResidualTol
	}

	j, err := NewJacobianAction(op, x0, opts.EpsDu)
	if err != nil {
		return nil, err
	}

	baseResidual := j.BaseResidualNorm()
	cfl := op.CFL()
	if baseResidual > opts.ResidualTol {
		return nil, fmt.Errorf("not a solution: |G(x0)| = %.3e exceeds tolerance %.3e: %w",
			baseResidual, opts.ResidualTol, dynamo.ErrNotASolution)
	}

	v, err := seed.Vector(len(x0))
	if err != nil {
		return nil, err
	}

	arn, err := New(j, opts.Arnoldi)
	if err != nil {
		return nil, err
	}
	result, err := arn.Run(ctx, v, onStep)
	if err != nil {
		return nil, err
	}

	return &Report{BaseResidual: baseResidual, CFL: cfl, Result: result}, nil
}
