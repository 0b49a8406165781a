package solvers

import (
	"fmt"

	jww "github.com/spf13/jwalterweatherman"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofvm/ldu"
)

// MaxDirectCells bounds the dense factorisation used by the direct solver.
const MaxDirectCells = 4096

func init() {
	Register("direct", newDirect)
}

// direct factorises the assembled matrix with a dense LU. It is a reference
// for small uncoupled systems.
type direct struct {
	fieldName string
	sys       *ldu.System
	lu        mat.LU
}

func newDirect(fieldName string, sys *ldu.System, _ ldu.Reducer, _ Controls) (Solver, error) {
	var (
		m      = sys.Matrix
		nCells = m.Addr().Size()
	)
	for _, iface := range sys.Interfaces {
		if iface != nil {
			return nil, fmt.Errorf("%w: direct solve of %s with coupled interfaces", ErrNotSupported, fieldName)
		}
	}
	if nCells > MaxDirectCells {
		return nil, fmt.Errorf("%w: direct solve of %s with %d cells, limit is %d",
			ErrNotSupported, fieldName, nCells, MaxDirectCells)
	}
	ds := &direct{fieldName: fieldName, sys: sys}
	if nCells > 0 {
		ds.lu.Factorize(mat.DenseCopyOf(m.ToCSR()))
	}
	return ds, nil
}

func (ds *direct) Solve(psi, source []float64) (sp Performance) {
	var (
		m      = ds.sys.Matrix
		nCells = m.Addr().Size()
		reduce = ldu.SerialReducer{}
		Apsi   = make([]float64, nCells)
		tmp    = make([]float64, nCells)
		rA     = make([]float64, nCells)
	)
	sp = Performance{
		SolverName: "direct",
		FieldName:  ds.fieldName,
	}
	if nCells == 0 {
		sp.Converged = true
		return
	}
	m.Amul(Apsi, psi, nil, nil)
	normFactor := m.NormFactor(psi, source, Apsi, tmp, nil, nil, reduce)
	floats.SubTo(rA, source, Apsi)
	sp.InitialResidual = sumMag(reduce, rA) / normFactor

	var x mat.VecDense
	if err := ds.lu.SolveVecTo(&x, false, mat.NewVecDense(nCells, append([]float64{}, source...))); err != nil {
		jww.WARN.Printf("direct: %s: %v", ds.fieldName, err)
		sp.Singular = true
		sp.FinalResidual = sp.InitialResidual
		return
	}
	copy(psi, x.RawVector().Data)
	m.Residual(rA, psi, source, nil, nil)
	sp.FinalResidual = sumMag(reduce, rA) / normFactor
	sp.NIterations = 1
	sp.Converged = true
	return
}
