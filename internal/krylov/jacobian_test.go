package krylov_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/krylov"
)

// quadResidual is a synthetic residual G(x) = A*x + quad*(x.*x) whose
// Jacobian at the origin is exactly A.
type quadResidual struct {
	a    *mat.Dense
	quad float64
}

func (r *quadResidual) Eval(x dynamo.State) (dynamo.State, error) {
	n := len(x)
	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += r.a.At(i, j) * x[j]
		}
		result[i] = sum + r.quad*x[i]*x[i]
	}
	return result, nil
}

func (r *quadResidual) CFL() float64 { return 0 }

// spyResidual records every evaluation point.
type spyResidual struct {
	inputs []dynamo.State
}

func (r *spyResidual) Eval(x dynamo.State) (dynamo.State, error) {
	r.inputs = append(r.inputs, x.Clone())
	return make(dynamo.State, len(x)), nil
}

func (r *spyResidual) CFL() float64 { return 0 }

var _ = Describe("JacobianAction", func() {
	It("is linear to within truncation error", func() {
		n := 4
		op := &quadResidual{a: testMatrix(n), quad: 0.01}
		x0 := make(dynamo.State, n)

		j, err := krylov.NewJacobianAction(op, x0, 1e-7)
		Expect(err).NotTo(HaveOccurred())

		v1 := dynamo.State{1, 0, -1, 2}
		v2 := dynamo.State{0.5, 1, 0, -0.3}
		a, b := 0.7, -1.3

		lhs, err := j.Apply(v1.Scale(a).Add(v2.Scale(b)))
		Expect(err).NotTo(HaveOccurred())

		jv1, err := j.Apply(v1)
		Expect(err).NotTo(HaveOccurred())
		jv2, err := j.Apply(v2)
		Expect(err).NotTo(HaveOccurred())
		rhs := jv1.Scale(a).Add(jv2.Scale(b))

		Expect(lhs.Sub(rhs).Norm()).To(BeNumerically("<", 1e-6*rhs.Norm()+1e-9))
	})

	It("scales the step so the displacement has norm eps_du", func() {
		spy := &spyResidual{}
		x0 := dynamo.State{1, 2, 3}

		j, err := krylov.NewJacobianAction(spy, x0, 1e-7)
		Expect(err).NotTo(HaveOccurred())

		// Perturbation of norm 10: the displacement must come out at
		// 1e-7, not 1e-6.
		v := dynamo.State{10, 0, 0}
		_, err = j.Apply(v)
		Expect(err).NotTo(HaveOccurred())

		Expect(spy.inputs).To(HaveLen(2)) // base eval + one probe
		displacement := spy.inputs[1].Sub(x0).Norm()
		Expect(displacement).To(BeNumerically("~", 1e-7, 1e-12))
	})

	It("uses the full eps_du step for tiny perturbations", func() {
		spy := &spyResidual{}
		x0 := dynamo.State{0, 0}

		j, err := krylov.NewJacobianAction(spy, x0, 1e-7)
		Expect(err).NotTo(HaveOccurred())

		v := dynamo.State{1e-9, 0}
		_, err = j.Apply(v)
		Expect(err).NotTo(HaveOccurred())

		// eps = eps_du, so displacement = eps_du * |v|.
		displacement := spy.inputs[1].Sub(x0).Norm()
		Expect(displacement).To(BeNumerically("~", 1e-16, 1e-20))
	})

	It("caches G(x0) across applications", func() {
		spy := &spyResidual{}
		j, err := krylov.NewJacobianAction(spy, dynamo.State{1, 1}, 1e-7)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 3; i++ {
			_, err = j.Apply(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())
		}

		// One base evaluation plus one probe per Apply.
		Expect(spy.inputs).To(HaveLen(4))
	})

	It("rejects mismatched perturbation dimensions", func() {
		j, err := krylov.NewJacobianAction(&spyResidual{}, dynamo.State{1, 1}, 1e-7)
		Expect(err).NotTo(HaveOccurred())

		_, err = j.Apply(dynamo.State{1})
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})
})
