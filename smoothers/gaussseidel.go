package smoothers

import (
	"github.com/notargets/gofvm/ldu"
)

func init() {
	Register("GaussSeidel", func(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) Smoother {
		return NewGaussSeidel(m, bouCoeffs, interfaces)
	})
}

// GaussSeidel is the forward-only sweep of SymGaussSeidel.
type GaussSeidel struct {
	matrix     *ldu.Matrix
	bouCoeffs  ldu.CoeffsList
	interfaces ldu.Interfaces
	bPrime     []float64
}

func NewGaussSeidel(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) *GaussSeidel {
	return &GaussSeidel{
		matrix:     m,
		bouCoeffs:  bouCoeffs,
		interfaces: interfaces,
	}
}

func (gs *GaussSeidel) Smooth(psi, source []float64, nSweeps int) {
	checkArgs(gs.matrix, psi, source)
	var (
		addr     = gs.matrix.Addr()
		nCells   = addr.Size()
		u        = addr.UpperAddr()
		ownStart = addr.OwnerStartAddr()
		diag     = gs.matrix.Diag()
		upper    = gs.matrix.Upper()
		lower    = gs.matrix.Lower()
	)
	gs.bPrime = growTo(gs.bPrime, nCells)
	bPrime := gs.bPrime

	gs.bouCoeffs.Negate()
	defer gs.bouCoeffs.Negate()

	for sweep := 0; sweep < nSweeps; sweep++ {
		copy(bPrime, source)

		ldu.InitMatrixInterfaces(gs.bouCoeffs, gs.interfaces, psi)
		ldu.UpdateMatrixInterfaces(gs.bouCoeffs, gs.interfaces, psi, bPrime)

		for cell := 0; cell < nCells; cell++ {
			fStart, fEnd := ownStart[cell], ownStart[cell+1]
			psii := bPrime[cell]
			for face := fStart; face < fEnd; face++ {
				psii -= upper[face] * psi[u[face]]
			}
			psii /= diag[cell]
			for face := fStart; face < fEnd; face++ {
				bPrime[u[face]] -= lower[face] * psii
			}
			psi[cell] = psii
		}
	}
}
