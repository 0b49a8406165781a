package smoothers

import (
	"github.com/notargets/gofvm/ldu"
)

func init() {
	Register("symGaussSeidel", func(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) Smoother {
		return NewSymGaussSeidel(m, bouCoeffs, interfaces)
	})
}

// SymGaussSeidel performs symmetric Gauss-Seidel sweeps: a forward pass in
// increasing cell order followed by a backward pass in decreasing order.
// Interface values enter as a source term evaluated once per sweep, so
// coupling across interfaces lags one sweep behind the interior.
//
// The boundary coefficients are negated in place for the duration of Smooth
// and restored on return. Concurrent Smooth calls sharing the coefficient
// lists are not supported.
type SymGaussSeidel struct {
	matrix     *ldu.Matrix
	bouCoeffs  ldu.CoeffsList
	interfaces ldu.Interfaces
	bPrime     []float64
}

func NewSymGaussSeidel(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) *SymGaussSeidel {
	return &SymGaussSeidel{
		matrix:     m,
		bouCoeffs:  bouCoeffs,
		interfaces: interfaces,
	}
}

func (gs *SymGaussSeidel) Smooth(psi, source []float64, nSweeps int) {
	checkArgs(gs.matrix, psi, source)
	var (
		addr     = gs.matrix.Addr()
		nCells   = addr.Size()
		u        = addr.UpperAddr()
		ownStart = addr.OwnerStartAddr()
		diag     = gs.matrix.Diag()
		upper    = gs.matrix.Upper()
		lower    = gs.matrix.Lower()
		psii     float64
		fStart   int
		fEnd     int
	)
	gs.bPrime = growTo(gs.bPrime, nCells)
	bPrime := gs.bPrime

	// Coupled coefficients carry the sign of a source term; flip them so the
	// interface update adds to bPrime, and flip back however we leave.
	gs.bouCoeffs.Negate()
	defer gs.bouCoeffs.Negate()

	for sweep := 0; sweep < nSweeps; sweep++ {
		copy(bPrime, source)

		ldu.InitMatrixInterfaces(gs.bouCoeffs, gs.interfaces, psi)
		ldu.UpdateMatrixInterfaces(gs.bouCoeffs, gs.interfaces, psi, bPrime)

		// Forward sweep
		fEnd = ownStart[0]
		for cell := 0; cell < nCells; cell++ {
			fStart = fEnd
			fEnd = ownStart[cell+1]

			// bPrime already holds the neighbour-row terms of updated cells
			psii = bPrime[cell]
			for face := fStart; face < fEnd; face++ {
				psii -= upper[face] * psi[u[face]]
			}
			psii /= diag[cell]

			// Hand the new value on to the rows of this cell's neighbours
			for face := fStart; face < fEnd; face++ {
				bPrime[u[face]] -= lower[face] * psii
			}
			psi[cell] = psii
		}

		// Backward sweep
		fStart = ownStart[nCells]
		for cell := nCells - 1; cell >= 0; cell-- {
			fEnd = fStart
			fStart = ownStart[cell]

			psii = bPrime[cell]
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
