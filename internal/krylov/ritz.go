package krylov

import (
	"fmt"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Ritz is an eigenvalue of the Hessenberg projection together with a
// residual estimate of how well it approximates an eigenvalue of the
// underlying operator. Values come in conjugate pairs when the Krylov
// vectors are real.
type Ritz struct {
	Value     complex128
	Residual  float64
	Converged bool
}

// ExtractRitz computes the full spectrum of a square Hessenberg block
// with a general dense eigensolver and sorts it by descending
// magnitude, the physically dominant directions first. beta is the
// trailing subdiagonal entry H[m+1][m]; the residual estimate per value
// is beta * |last eigenvector component|. h is not mutated and repeated
// calls yield the same spectrum.
func ExtractRitz(h mat.Matrix, beta, rtol float64) ([]Ritz, error) {
	r, c := h.Dims()
	if r != c || r == 0 {
		return nil, fmt.Errorf("krylov: hessenberg block must be square and non-empty, got %dx%d", r, c)
	}
	if rtol <= 0 {
		rtol = DefaultRitzTol
	}

	ritz, _, _, err := extract(h, beta, rtol)
	return ritz, err
}

// extract is the shared implementation behind ExtractRitz and the
// iteration's own spectrum assembly; it additionally returns the raw
// eigenvectors and the sort order so Ritz vectors can be reconstructed.
func extract(h mat.Matrix, beta, rtol float64) ([]Ritz, *mat.CDense, []int, error) {
	vals, vecs, err := decompose(h)
	if err != nil {
		return nil, nil, nil, err
	}
	order := sortOrder(vals)
	m := len(vals)

	ritz := make([]Ritz, m)
	for i, idx := range order {
		val := vals[idx]
		resid := beta * cmplx.Abs(vecs.At(m-1, idx))
		scale := cmplx.Abs(val)
		if scale < 1 {
			scale = 1
		}
		ritz[i] = Ritz{Value: val, Residual: resid, Converged: resid <= rtol*scale}
	}
	return ritz, vecs, order, nil
}

func decompose(h mat.Matrix) ([]complex128, *mat.CDense, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(h, mat.EigenRight); !ok {
		return nil, nil, fmt.Errorf("krylov: hessenberg eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.CDense
	eig.VectorsTo(&vecs)
	return vals, &vecs, nil
}

// sortOrder returns column indices ordered by descending |value|, with
// ties broken by descending real then imaginary part so conjugate
// pairs appear in a canonical order.
func sortOrder(vals []complex128) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := vals[order[a]], vals[order[b]]
		ma, mb := cmplx.Abs(va), cmplx.Abs(vb)
		if ma != mb {
			return ma > mb
		}
		if real(va) != real(vb) {
			return real(va) > real(vb)
		}
		return imag(va) > imag(vb)
	})
	return order
}
