package smoothers

import (
	"github.com/notargets/gofvm/ldu"
)

func init() {
	Register("Jacobi", func(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) Smoother {
		return NewJacobi(m, bouCoeffs, interfaces, 1)
	})
	Register("weightedJacobi", func(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) Smoother {
		return NewJacobi(m, bouCoeffs, interfaces, 2./3.)
	})
}

// Jacobi updates every cell from the previous iterate only, blended with
// the old value by the relaxation factor Omega.
type Jacobi struct {
	matrix     *ldu.Matrix
	bouCoeffs  ldu.CoeffsList
	interfaces ldu.Interfaces
	Omega      float64
	bPrime     []float64
}

func NewJacobi(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces, omega float64) *Jacobi {
	return &Jacobi{
		matrix:     m,
		bouCoeffs:  bouCoeffs,
		interfaces: interfaces,
		Omega:      omega,
	}
}

func (js *Jacobi) Smooth(psi, source []float64, nSweeps int) {
	checkArgs(js.matrix, psi, source)
	var (
		addr   = js.matrix.Addr()
		nCells = addr.Size()
		l      = addr.LowerAddr()
		u      = addr.UpperAddr()
		diag   = js.matrix.Diag()
		upper  = js.matrix.Upper()
		lower  = js.matrix.Lower()
	)
	js.bPrime = growTo(js.bPrime, nCells)
	bPrime := js.bPrime

	js.bouCoeffs.Negate()
	defer js.bouCoeffs.Negate()

	for sweep := 0; sweep < nSweeps; sweep++ {
		copy(bPrime, source)

		ldu.InitMatrixInterfaces(js.bouCoeffs, js.interfaces, psi)
		ldu.UpdateMatrixInterfaces(js.bouCoeffs, js.interfaces, psi, bPrime)

		for face := range u {
			bPrime[l[face]] -= upper[face] * psi[u[face]]
			bPrime[u[face]] -= lower[face] * psi[l[face]]
		}
		for cell := 0; cell < nCells; cell++ {
			psi[cell] = (1-js.Omega)*psi[cell] + js.Omega*bPrime[cell]/diag[cell]
		}
	}
}
