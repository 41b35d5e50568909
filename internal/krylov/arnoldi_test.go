package krylov_test

import (
	"context"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/krylov"
)

// diagOp applies a diagonal matrix directly, no finite differencing.
type diagOp struct{ d []float64 }

func (o *diagOp) Apply(v dynamo.State) (dynamo.State, error) {
	result := make(dynamo.State, len(v))
	for i := range v {
		result[i] = o.d[i] * v[i]
	}
	return result, nil
}

type nanOp struct{}

func (o *nanOp) Apply(v dynamo.State) (dynamo.State, error) {
	result := make(dynamo.State, len(v))
	result[0] = math.NaN()
	return result, nil
}

// denseOp applies a fixed dense matrix.
type denseOp struct{ a *mat.Dense }

func (o *denseOp) Apply(v dynamo.State) (dynamo.State, error) {
	n := len(v)
	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += o.a.At(i, j) * v[j]
		}
		result[i] = sum
	}
	return result, nil
}

// deterministic full-rank test matrix with well-spread spectrum
func testMatrix(n int) *mat.Dense {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				a.Set(i, j, float64(n-i))
			} else {
				a.Set(i, j, 0.1*math.Sin(float64(3*i+7*j+1)))
			}
		}
	}
	return a
}

func ones(n int) dynamo.State {
	v := make(dynamo.State, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

var _ = Describe("Arnoldi", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("requires an explicit iteration cap", func() {
		_, err := krylov.New(&diagOp{d: []float64{1}}, krylov.Options{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a zero seed", func() {
		arn, err := krylov.New(&diagOp{d: []float64{1, 2}}, krylov.Options{MaxIterations: 2})
		Expect(err).NotTo(HaveOccurred())

		_, err = arn.Run(ctx, dynamo.State{0, 0}, nil)
		Expect(err).To(MatchError(dynamo.ErrZeroVector))
	})

	It("keeps the Krylov basis orthonormal to numerical precision", func() {
		n := 12
		arn, err := krylov.New(&denseOp{a: testMatrix(n)}, krylov.Options{
			MaxIterations: 8,
			NumValues:     8,
			RitzTol:       1e-14, // keep it expanding for all 8 steps
		})
		Expect(err).NotTo(HaveOccurred())

		seed := make(dynamo.State, n)
		for i := range seed {
			seed[i] = 1.0 / float64(i+1)
		}
		res, err := arn.Run(ctx, seed, nil)
		Expect(err).NotTo(HaveOccurred())

		for i := range res.Basis {
			for j := range res.Basis {
				want := 0.0
				if i == j {
					want = 1.0
				}
				Expect(res.Basis[i].Dot(res.Basis[j])).To(BeNumerically("~", want, 1e-10),
					"gram entry (%d,%d)", i, j)
			}
		}
	})

	It("never writes below the first subdiagonal of H", func() {
		n := 10
		arn, err := krylov.New(&denseOp{a: testMatrix(n)}, krylov.Options{
			MaxIterations: 6,
			NumValues:     6,
			RitzTol:       1e-14,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := arn.Run(ctx, ones(n), nil)
		Expect(err).NotTo(HaveOccurred())

		rows, cols := res.H.Dims()
		Expect(rows).To(Equal(res.Iterations + 1))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if i > j+1 {
					Expect(res.H.At(i, j)).To(BeZero(),
						"H[%d][%d] must be structurally zero", i, j)
				}
			}
		}
	})

	It("recovers a diagonal spectrum within n steps", func() {
		arn, err := krylov.New(&diagOp{d: []float64{3, 2, 1}}, krylov.Options{
			MaxIterations: 10,
			NumValues:     3,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := arn.Run(ctx, dynamo.State{1, 1, 1}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Iterations).To(BeNumerically("<=", 3))
		Expect(res.Ritz).To(HaveLen(3))
		for i, want := range []float64{3, 2, 1} {
			Expect(real(res.Ritz[i].Value)).To(BeNumerically("~", want, 1e-8))
			Expect(imag(res.Ritz[i].Value)).To(BeNumerically("~", 0, 1e-10))
		}
	})

	It("reconstructs eigenvector estimates through the basis", func() {
		arn, err := krylov.New(&diagOp{d: []float64{3, 2, 1}}, krylov.Options{
			MaxIterations: 10,
			NumValues:     3,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := arn.Run(ctx, dynamo.State{1, 1, 1}, nil)
		Expect(err).NotTo(HaveOccurred())

		// Dominant eigenvector of diag(3,2,1) is e1 up to phase.
		y := res.Eigenvector(0)
		Expect(y).To(HaveLen(3))
		norm := 0.0
		for _, c := range y {
			norm += real(c)*real(c) + imag(c)*imag(c)
		}
		norm = math.Sqrt(norm)
		Expect(cmplx.Abs(y[0])).To(BeNumerically("~", norm, 1e-6))
	})

	It("detects early breakdown on an invariant subspace", func() {
		// Rank-2 Jacobian; seed inside the 2-dimensional invariant
		// subspace. Step 2 must hit a near-zero residual and stop
		// without spurious higher-order Ritz values.
		arn, err := krylov.New(&diagOp{d: []float64{2, 1, 0, 0, 0}}, krylov.Options{
			MaxIterations: 5,
			NumValues:     2,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := arn.Run(ctx, dynamo.State{1, 1, 0, 0, 0}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Status).To(Equal(krylov.StatusBreakdown))
		Expect(res.Iterations).To(Equal(2))
		Expect(res.Ritz).To(HaveLen(2))
		Expect(real(res.Ritz[0].Value)).To(BeNumerically("~", 2, 1e-10))
		Expect(real(res.Ritz[1].Value)).To(BeNumerically("~", 1, 1e-10))
	})

	It("converges once the leading Ritz values stabilize", func() {
		n := 20
		d := make([]float64, n)
		d[0], d[1] = 100, 10
		for i := 2; i < n; i++ {
			d[i] = 0.5 / float64(i)
		}
		arn, err := krylov.New(&diagOp{d: d}, krylov.Options{
			MaxIterations: 19,
			NumValues:     2,
			RitzTol:       1e-8,
		})
		Expect(err).NotTo(HaveOccurred())

		var steps int
		res, err := arn.Run(ctx, ones(n), func(info krylov.StepInfo) { steps = info.Iteration })
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Status).To(Equal(krylov.StatusConverged))
		Expect(steps).To(Equal(res.Iterations))
		Expect(res.Iterations).To(BeNumerically("<", 19))
		Expect(real(res.Ritz[0].Value)).To(BeNumerically("~", 100, 1e-5))
		Expect(real(res.Ritz[1].Value)).To(BeNumerically("~", 10, 1e-5))
	})

	It("reports the same spectrum the extractor computes from H", func() {
		n := 10
		rtol := 1e-14
		arn, err := krylov.New(&denseOp{a: testMatrix(n)}, krylov.Options{
			MaxIterations: 5,
			NumValues:     5,
			RitzTol:       rtol,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := arn.Run(ctx, ones(n), nil)
		Expect(err).NotTo(HaveOccurred())

		m := res.Iterations
		ritz, err := krylov.ExtractRitz(res.H.Slice(0, m, 0, m), res.H.At(m, m-1), rtol)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Ritz).To(HaveLen(len(ritz)))
		for i := range ritz {
			Expect(res.Ritz[i].Value).To(Equal(ritz[i].Value))
			Expect(res.Ritz[i].Residual).To(Equal(ritz[i].Residual))
			Expect(res.Ritz[i].Converged).To(Equal(ritz[i].Converged))
		}
	})

	It("reports the iteration cap as a non-error terminal state", func() {
		n := 12
		arn, err := krylov.New(&denseOp{a: testMatrix(n)}, krylov.Options{
			MaxIterations: 4,
			NumValues:     4,
			RitzTol:       1e-15,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := arn.Run(ctx, ones(n), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(krylov.StatusMaxIterReached))
		Expect(res.Iterations).To(Equal(4))
		Expect(res.Ritz).To(HaveLen(4))
	})

	It("fails fatally and attributably on a non-finite evaluation", func() {
		arn, err := krylov.New(&nanOp{}, krylov.Options{MaxIterations: 3})
		Expect(err).NotTo(HaveOccurred())

		_, err = arn.Run(ctx, dynamo.State{1, 0}, nil)
		Expect(err).To(MatchError(dynamo.ErrNotFinite))
		Expect(err.Error()).To(ContainSubstring("arnoldi step 1"))
	})

	It("stops between steps when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		arn, err := krylov.New(&diagOp{d: []float64{1, 2}}, krylov.Options{MaxIterations: 2})
		Expect(err).NotTo(HaveOccurred())

		_, err = arn.Run(cancelled, dynamo.State{1, 1}, nil)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("ExtractRitz", func() {
	It("is idempotent on the same Hessenberg matrix", func() {
		h := mat.NewDense(4, 4, []float64{
			2.0, 0.3, 0.1, 0.4,
			1.1, 1.5, 0.2, 0.3,
			0.0, 0.9, 1.0, 0.1,
			0.0, 0.0, 0.7, 0.5,
		})

		first, err := krylov.ExtractRitz(h, 0.01, 1e-6)
		Expect(err).NotTo(HaveOccurred())
		second, err := krylov.ExtractRitz(h, 0.01, 1e-6)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(HaveLen(len(first)))
		for i := range first {
			Expect(second[i].Value).To(Equal(first[i].Value))
			Expect(second[i].Residual).To(Equal(first[i].Residual))
		}
	})

	It("orders the spectrum by descending magnitude", func() {
		h := mat.NewDense(3, 3, []float64{
			0.5, 0, 0,
			0, 3.0, 0,
			0, 0, -2.0,
		})

		ritz, err := krylov.ExtractRitz(h, 0, 1e-6)
		Expect(err).NotTo(HaveOccurred())

		Expect(real(ritz[0].Value)).To(BeNumerically("~", 3.0, 1e-12))
		Expect(real(ritz[1].Value)).To(BeNumerically("~", -2.0, 1e-12))
		Expect(real(ritz[2].Value)).To(BeNumerically("~", 0.5, 1e-12))
	})

	It("rejects a non-square block", func() {
		_, err := krylov.ExtractRitz(mat.NewDense(2, 3, nil), 0, 1e-6)
		Expect(err).To(HaveOccurred())
	})

	It("reports complex pairs as conjugates", func() {
		// Rotation-like block has eigenvalues 1 +- i.
		h := mat.NewDense(2, 2, []float64{
			1, -1,
			1, 1,
		})

		ritz, err := krylov.ExtractRitz(h, 0, 1e-6)
		Expect(err).NotTo(HaveOccurred())

		Expect(ritz[0].Value).To(Equal(cmplx.Conj(ritz[1].Value)))
		Expect(imag(ritz[0].Value)).To(BeNumerically(">", 0))
	})
})
