package solvers

import (
	"fmt"
	"math"

	jww "github.com/spf13/jwalterweatherman"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gofvm/ldu"
)

func init() {
	Register("PCG", newPCG)
}

// pcg is preconditioned conjugate gradients for symmetric matrices.
type pcg struct {
	fieldName string
	sys       *ldu.System
	reduce    ldu.Reducer
	controls  Controls
	precon    Preconditioner
}

func newPCG(fieldName string, sys *ldu.System, reduce ldu.Reducer, controls Controls) (Solver, error) {
	if sys.Matrix.IsAsymmetric() {
		return nil, fmt.Errorf("%w: PCG needs a symmetric matrix for %s", ErrNotSupported, fieldName)
	}
	precon, err := NewPreconditioner(controls.Preconditioner, sys, controls)
	if err != nil {
		return nil, err
	}
	return &pcg{
		fieldName: fieldName,
		sys:       sys,
		reduce:    reduce,
		controls:  controls,
		precon:    precon,
	}, nil
}

func (cg *pcg) Solve(psi, source []float64) (sp Performance) {
	var (
		m          = cg.sys.Matrix
		nCells     = m.Addr().Size()
		bou        = cg.sys.BouCoeffs
		interfaces = cg.sys.Interfaces
		wA         = make([]float64, nCells)
		rA         = make([]float64, nCells)
		pA         = make([]float64, nCells)
		tmp        = make([]float64, nCells)
		wArA       = Great
		wArAold    float64
	)
	sp = Performance{
		SolverName: "PCG",
		FieldName:  cg.fieldName,
	}

	m.Amul(wA, psi, bou, interfaces)
	floats.SubTo(rA, source, wA)
	normFactor := m.NormFactor(psi, source, wA, tmp, bou, interfaces, cg.reduce)

	sp.InitialResidual = sumMag(cg.reduce, rA) / normFactor
	sp.FinalResidual = sp.InitialResidual

	if cg.controls.MinIter > 0 || !sp.checkConvergence(cg.controls.Tolerance, cg.controls.RelTol) {
		for {
			wArAold = wArA
			cg.precon.Precondition(wA, rA)
			wArA = sumProd(cg.reduce, wA, rA)

			if sp.NIterations == 0 {
				copy(pA, wA)
			} else {
				beta := wArA / wArAold
				for cell := range pA {
					pA[cell] = wA[cell] + beta*pA[cell]
				}
			}

			m.Amul(wA, pA, bou, interfaces)
			wApA := sumProd(cg.reduce, wA, pA)
			if sp.checkSingularity(math.Abs(wApA) / normFactor) {
				jww.DEBUG.Printf("PCG: %s singular after %d iterations", cg.fieldName, sp.NIterations)
				break
			}

			alpha := wArA / wApA
			floats.AddScaled(psi, alpha, pA)
			floats.AddScaled(rA, -alpha, wA)
			sp.FinalResidual = sumMag(cg.reduce, rA) / normFactor
			sp.NIterations++
			jww.TRACE.Printf("PCG: %s iteration %d residual %g", cg.fieldName, sp.NIterations, sp.FinalResidual)

			if !((sp.NIterations < cg.controls.MaxIter &&
				!sp.checkConvergence(cg.controls.Tolerance, cg.controls.RelTol)) ||
				sp.NIterations < cg.controls.MinIter) {
				break
			}
		}
	}
	return
}
