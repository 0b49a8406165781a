package solvers

import (
	"github.com/notargets/gofvm/ldu"
)

func init() {
	Register("diagonal", newDiagonalSolver)
}

// diagonalSolver divides by the diagonal. It is exact for matrices without
// off-diagonal coefficients and reports no iterations.
type diagonalSolver struct {
	fieldName string
	sys       *ldu.System
}

func newDiagonalSolver(fieldName string, sys *ldu.System, _ ldu.Reducer, _ Controls) (Solver, error) {
	return &diagonalSolver{fieldName: fieldName, sys: sys}, nil
}

func (ds *diagonalSolver) Solve(psi, source []float64) Performance {
	for cell, d := range ds.sys.Matrix.Diag() {
		psi[cell] = source[cell] / d
	}
	return Performance{
		SolverName: "diagonal",
		FieldName:  ds.fieldName,
		Converged:  true,
	}
}
