package solvers

import (
	jww "github.com/spf13/jwalterweatherman"

	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/smoothers"
)

func init() {
	Register("smoothSolver", newSmoothSolver)
}

// smoothSolver applies NSweeps sweeps of the selected smoother between
// residual checks until the tolerance is met.
type smoothSolver struct {
	fieldName string
	sys       *ldu.System
	reduce    ldu.Reducer
	controls  Controls
	smoother  smoothers.Smoother
}

func newSmoothSolver(fieldName string, sys *ldu.System, reduce ldu.Reducer, controls Controls) (Solver, error) {
	sm, err := smoothers.New(controls.Smoother, sys.Matrix, sys.BouCoeffs, sys.Interfaces)
	if err != nil {
		return nil, err
	}
	return &smoothSolver{
		fieldName: fieldName,
		sys:       sys,
		reduce:    reduce,
		controls:  controls,
		smoother:  sm,
	}, nil
}

func (ss *smoothSolver) Solve(psi, source []float64) (sp Performance) {
	var (
		m       = ss.sys.Matrix
		nCells  = m.Addr().Size()
		nSweeps = ss.controls.NSweeps
	)
	sp = Performance{
		SolverName: "smoothSolver",
		FieldName:  ss.fieldName,
	}
	if nSweeps < 0 {
		ss.smoother.Smooth(psi, source, -nSweeps)
		sp.NIterations = -nSweeps
		return
	}

	var (
		Apsi = make([]float64, nCells)
		tmp  = make([]float64, nCells)
		rA   = make([]float64, nCells)
	)
	m.Amul(Apsi, psi, ss.sys.BouCoeffs, ss.sys.Interfaces)
	normFactor := m.NormFactor(psi, source, Apsi, tmp, ss.sys.BouCoeffs, ss.sys.Interfaces, ss.reduce)

	residual := func() float64 {
		m.Residual(rA, psi, source, ss.sys.BouCoeffs, ss.sys.Interfaces)
		return sumMag(ss.reduce, rA) / normFactor
	}
	sp.InitialResidual = residual()
	sp.FinalResidual = sp.InitialResidual

	if ss.controls.MinIter > 0 || !sp.checkConvergence(ss.controls.Tolerance, ss.controls.RelTol) {
		for {
			ss.smoother.Smooth(psi, source, nSweeps)
			sp.FinalResidual = residual()
			sp.NIterations += nSweeps
			jww.TRACE.Printf("%s: %s iteration %d residual %g", sp.SolverName, ss.fieldName,
				sp.NIterations, sp.FinalResidual)
			if !((sp.NIterations < ss.controls.MaxIter &&
				!sp.checkConvergence(ss.controls.Tolerance, ss.controls.RelTol)) ||
				sp.NIterations < ss.controls.MinIter) {
				break
			}
		}
	}
	return
}
