package krylov

import (
	"context"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/eigenflow/internal/dynamo"
)

const (
	DefaultNumValues    = 5
	DefaultRitzTol      = 1e-6
	DefaultBreakdownTol = 1e-12
)

// Status is the terminal state of an Arnoldi run. Breakdown and
// MaxIterReached are informational, not errors: partial spectra are
// still extracted and reported.
type Status int

const (
	StatusExpanding Status = iota
	StatusConverged
	StatusMaxIterReached
	StatusBreakdown
)

func (s Status) String() string {
	switch s {
	case StatusExpanding:
		return "expanding"
	case StatusConverged:
		return "converged"
	case StatusMaxIterReached:
		return "max iterations reached"
	case StatusBreakdown:
		return "krylov breakdown (invariant subspace)"
	default:
		return "unknown"
	}
}

type Options struct {
	// MaxIterations bounds the Krylov subspace dimension. It must be
	// set explicitly; there is no implicit default.
	MaxIterations int

	// NumValues is how many leading Ritz values must stabilize for
	// convergence.
	NumValues int

	// RitzTol is the relative stabilization tolerance between
	// successive steps.
	RitzTol float64

	// BreakdownTol is the subdiagonal norm below which the subspace is
	// treated as exactly invariant.
	BreakdownTol float64
}

func (o Options) withDefaults() Options {
	if o.NumValues <= 0 {
		o.NumValues = DefaultNumValues
	}
	if o.RitzTol <= 0 {
		o.RitzTol = DefaultRitzTol
	}
	if o.BreakdownTol <= 0 {
		o.BreakdownTol = DefaultBreakdownTol
	}
	return o
}

func (o Options) Validate() error {
	if o.MaxIterations <= 0 {
		return fmt.Errorf("krylov: max iterations must be explicitly configured, got %d", o.MaxIterations)
	}
	return nil
}

// StepInfo is delivered to the per-step callback after each subspace
// expansion.
type StepInfo struct {
	Iteration int
	Residual  float64
	Leading   []complex128
}

// Result carries the extracted spectrum and the Krylov data backing it.
type Result struct {
	Status          Status
	Iterations      int
	Ritz            []Ritz
	ResidualHistory []float64

	// Basis holds the orthonormal Krylov vectors q_1..q_m.
	Basis []dynamo.State

	// H is the (m+1) x m Hessenberg rectangle; entries below the first
	// subdiagonal are structurally zero, never computed.
	H *mat.Dense

	vectors *mat.CDense
	order   []int
}

// Eigenvector reconstructs the i-th Ritz vector in state space,
// y = Q * z_i, ordered like Result.Ritz.
func (r *Result) Eigenvector(i int) []complex128 {
	if r.vectors == nil || i < 0 || i >= len(r.order) {
		return nil
	}
	col := r.order[i]
	n := len(r.Basis[0])
	y := make([]complex128, n)
	for j, q := range r.Basis {
		z := r.vectors.At(j, col)
		for k := 0; k < n; k++ {
			y[k] += complex(q[k], 0) * z
		}
	}
	return y
}

// Arnoldi builds an orthonormal Krylov basis for a matrix-free linear
// operator and accumulates its Hessenberg projection.
type Arnoldi struct {
	op   Operator
	opts Options
}

func New(op Operator, opts Options) (*Arnoldi, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Arnoldi{op: op, opts: opts.withDefaults()}, nil
}

// Run drives the iteration from a seed perturbation. onStep, if
// non-nil, is called after every expansion. The returned error is
// non-nil only for fatal conditions (non-finite evaluation, invalid
// seed, context cancellation); breakdown and hitting the iteration cap
// are reported through Result.Status with partial results intact.
func (a *Arnoldi) Run(ctx context.Context, seed dynamo.State, onStep func(StepInfo)) (*Result, error) {
	if !seed.IsValid() {
		return nil, fmt.Errorf("krylov: seed: %w", dynamo.ErrNotFinite)
	}
	norm := seed.Norm()
	if norm == 0 {
		return nil, fmt.Errorf("krylov: seed: %w", dynamo.ErrZeroVector)
	}

	max := a.opts.MaxIterations
	basis := []dynamo.State{seed.Scale(1 / norm)}
	h := mat.NewDense(max+1, max, nil)
	history := make([]float64, 0, max)

	status := StatusExpanding
	var prevLeading []complex128
	m := 0

	for k := 0; k < max; k++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("krylov: arnoldi step %d: %w", k+1, ctx.Err())
		default:
		}

		w, err := a.op.Apply(basis[k])
		if err != nil {
			return nil, fmt.Errorf("krylov: arnoldi step %d: %w", k+1, err)
		}
		if !w.IsValid() {
			return nil, fmt.Errorf("krylov: arnoldi step %d: %w", k+1, dynamo.ErrNotFinite)
		}
		if len(w) != len(basis[k]) {
			return nil, fmt.Errorf("krylov: arnoldi step %d: %w", k+1, dynamo.ErrDimensionMismatch)
		}

		// Modified Gram-Schmidt with one full re-orthogonalization
		// pass; the second sweep folds its corrections into the same
		// Hessenberg column.
		for pass := 0; pass < 2; pass++ {
			for i := 0; i <= k; i++ {
				c := w.Dot(basis[i])
				h.Set(i, k, h.At(i, k)+c)
				w = w.AddScaled(-c, basis[i])
			}
		}

		beta := w.Norm()
		h.Set(k+1, k, beta)
		history = append(history, beta)
		m = k + 1

		leading := leadingValues(h, m, a.opts.NumValues)
		if onStep != nil {
			onStep(StepInfo{Iteration: m, Residual: beta, Leading: leading})
		}

		if beta < a.opts.BreakdownTol {
			status = StatusBreakdown
			break
		}
		if m >= a.opts.NumValues && stabilized(leading, prevLeading, a.opts.RitzTol) {
			status = StatusConverged
			break
		}
		prevLeading = leading

		if k == max-1 {
			status = StatusMaxIterReached
			break
		}
		basis = append(basis, w.Scale(1/beta))
	}

	return a.finish(h, basis, history, m, status)
}

func (a *Arnoldi) finish(h *mat.Dense, basis []dynamo.State, history []float64, m int, status Status) (*Result, error) {
	beta := h.At(m, m-1)
	ritz, vecs, order, err := extract(h.Slice(0, m, 0, m), beta, a.opts.RitzTol)
	if err != nil {
		return nil, err
	}

	return &Result{
		Status:          status,
		Iterations:      m,
		Ritz:            ritz,
		ResidualHistory: history,
		Basis:           basis,
		H:               mat.DenseCopyOf(h.Slice(0, m+1, 0, m)),
		vectors:         vecs,
		order:           order,
	}, nil
}

// stabilized reports whether the leading Ritz values moved less than
// rtol relative to the previous step.
func stabilized(cur, prev []complex128, rtol float64) bool {
	if prev == nil || len(cur) != len(prev) {
		return false
	}
	for i := range cur {
		scale := cmplx.Abs(cur[i])
		if scale < rtol {
			scale = 1
		}
		if cmplx.Abs(cur[i]-prev[i]) > rtol*scale {
			return false
		}
	}
	return true
}

func leadingValues(h *mat.Dense, m, num int) []complex128 {
	vals, _, err := decompose(h.Slice(0, m, 0, m))
	if err != nil {
		return nil
	}
	order := sortOrder(vals)
	if num > len(order) {
		num = len(order)
	}
	leading := make([]complex128, num)
	for i := 0; i < num; i++ {
		leading[i] = vals[order[i]]
	}
	return leading
}
