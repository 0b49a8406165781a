package ldu

import (
	"fmt"
	"math"
)

// Small guards the residual normalisation against an all-zero system.
const Small = 1.0e-20

// Reducer sums a value over all ranks taking part in a solve.
type Reducer interface {
	Sum(v float64) float64
}

// SerialReducer is the Reducer of a single rank run.
type SerialReducer struct{}

func (SerialReducer) Sum(v float64) float64 { return v }

func checkSize(name string, v []float64, n int) {
	if len(v) != n {
		panic(fmt.Errorf("%w: %s has %d entries, expected %d", ErrSizeMismatch, name, len(v), n))
	}
}

// Amul computes Apsi = A psi, including the coupled interface contributions.
func (m *Matrix) Amul(Apsi, psi []float64, bouCoeffs CoeffsList, interfaces Interfaces) {
	var (
		nCells = m.addr.Size()
		l      = m.addr.LowerAddr()
		u      = m.addr.UpperAddr()
		upper  = m.Upper()
		lower  = m.Lower()
	)
	checkSize("Apsi", Apsi, nCells)
	checkSize("psi", psi, nCells)
	for cell := range Apsi {
		Apsi[cell] = 0
	}
	InitMatrixInterfaces(bouCoeffs, interfaces, psi)
	if m.HasDiag() {
		for cell := 0; cell < nCells; cell++ {
			Apsi[cell] += m.diag[cell] * psi[cell]
		}
	}
	for face := range u {
		Apsi[u[face]] += lower[face] * psi[l[face]]
		Apsi[l[face]] += upper[face] * psi[u[face]]
	}
	UpdateMatrixInterfaces(bouCoeffs, interfaces, psi, Apsi)
}

// Tmul computes Tpsi = A^T psi using the diagonal-side interface
// coefficients.
func (m *Matrix) Tmul(Tpsi, psi []float64, intCoeffs CoeffsList, interfaces Interfaces) {
	var (
		nCells = m.addr.Size()
		l      = m.addr.LowerAddr()
		u      = m.addr.UpperAddr()
		upper  = m.Upper()
		lower  = m.Lower()
	)
	checkSize("Tpsi", Tpsi, nCells)
	checkSize("psi", psi, nCells)
	for cell := range Tpsi {
		Tpsi[cell] = 0
	}
	InitMatrixInterfaces(intCoeffs, interfaces, psi)
	if m.HasDiag() {
		for cell := 0; cell < nCells; cell++ {
			Tpsi[cell] += m.diag[cell] * psi[cell]
		}
	}
	for face := range u {
		Tpsi[u[face]] += upper[face] * psi[l[face]]
		Tpsi[l[face]] += lower[face] * psi[u[face]]
	}
	UpdateMatrixInterfaces(intCoeffs, interfaces, psi, Tpsi)
}

// Residual computes rA = source - A psi. The boundary coefficients are used
// through a negated copy; the caller's lists are never modified.
func (m *Matrix) Residual(rA, psi, source []float64, bouCoeffs CoeffsList, interfaces Interfaces) {
	var (
		nCells     = m.addr.Size()
		l          = m.addr.LowerAddr()
		u          = m.addr.UpperAddr()
		upper      = m.Upper()
		lower      = m.Lower()
		mBouCoeffs = bouCoeffs.Negated()
	)
	checkSize("rA", rA, nCells)
	checkSize("psi", psi, nCells)
	checkSize("source", source, nCells)
	for cell := range rA {
		rA[cell] = 0
	}
	// Coupled coefficients carry source sign, internal ones matrix sign.
	InitMatrixInterfaces(mBouCoeffs, interfaces, psi)
	for cell := 0; cell < nCells; cell++ {
		if m.HasDiag() {
			rA[cell] += m.diag[cell] * psi[cell]
		}
		rA[cell] = source[cell] - rA[cell]
	}
	for face := range u {
		rA[u[face]] -= lower[face] * psi[l[face]]
		rA[l[face]] -= upper[face] * psi[u[face]]
	}
	UpdateMatrixInterfaces(mBouCoeffs, interfaces, psi, rA)
}

// SumA sets sumA to the row sums of the matrix, the coupled coefficients
// counted as off-diagonal entries.
func (m *Matrix) SumA(sumA []float64, bouCoeffs CoeffsList, interfaces Interfaces) {
	var (
		l     = m.addr.LowerAddr()
		u     = m.addr.UpperAddr()
		upper = m.Upper()
		lower = m.Lower()
	)
	checkSize("sumA", sumA, m.addr.Size())
	copy(sumA, m.diag)
	for face := range u {
		sumA[u[face]] += lower[face]
		sumA[l[face]] += upper[face]
	}
	for k, intf := range interfaces {
		if intf == nil {
			continue
		}
		for j, cell := range m.addr.PatchAddr(k) {
			sumA[cell] -= bouCoeffs[k][j]
		}
	}
}

// RowNorm returns |diag| + sum|offdiag| for each row of the internal matrix.
func (m *Matrix) RowNorm() (norm []float64) {
	var (
		l     = m.addr.LowerAddr()
		u     = m.addr.UpperAddr()
		upper = m.Upper()
		lower = m.Lower()
	)
	norm = make([]float64, m.addr.Size())
	for cell, d := range m.diag {
		norm[cell] = math.Abs(d)
	}
	for face := range u {
		norm[u[face]] += math.Abs(lower[face])
		norm[l[face]] += math.Abs(upper[face])
	}
	return
}

// NormFactor returns the normalisation applied to residual sums so that
// the reported residual is independent of the scale of the system:
//
//	sum(|A psi - A xRef| + |source - A xRef|) + Small
//
// where xRef is the uniform field at the average of psi. Apsi must hold A psi
// on entry; tmp is scratch.
func (m *Matrix) NormFactor(psi, source, Apsi, tmp []float64, bouCoeffs CoeffsList,
	interfaces Interfaces, reduce Reducer) float64 {
	var (
		sumPsi, nCells float64
		norm           float64
	)
	m.SumA(tmp, bouCoeffs, interfaces)
	for _, v := range psi {
		sumPsi += v
	}
	nCells = reduce.Sum(float64(len(psi)))
	psiAve := 0.
	if nCells > 0 {
		psiAve = reduce.Sum(sumPsi) / nCells
	}
	for cell := range tmp {
		tmp[cell] *= psiAve
		norm += math.Abs(Apsi[cell]-tmp[cell]) + math.Abs(source[cell]-tmp[cell])
	}
	return reduce.Sum(norm) + Small
}

// AmulNeighbourRows computes the internal part of A psi row by row, the
// owner side from the ownerStart ranges and the neighbour side from the
// losort ranges. It gives the same product as Amul without interfaces, up to
// summation order.
func (m *Matrix) AmulNeighbourRows(Apsi, psi []float64) {
	var (
		nCells      = m.addr.Size()
		l           = m.addr.LowerAddr()
		u           = m.addr.UpperAddr()
		ownStart    = m.addr.OwnerStartAddr()
		losort      = m.addr.LosortAddr()
		losortStart = m.addr.LosortStartAddr()
		upper       = m.Upper()
		lower       = m.Lower()
	)
	checkSize("Apsi", Apsi, nCells)
	checkSize("psi", psi, nCells)
	for cell := 0; cell < nCells; cell++ {
		sum := m.diag[cell] * psi[cell]
		for face := ownStart[cell]; face < ownStart[cell+1]; face++ {
			sum += upper[face] * psi[u[face]]
		}
		for i := losortStart[cell]; i < losortStart[cell+1]; i++ {
			face := losort[i]
			sum += lower[face] * psi[l[face]]
		}
		Apsi[cell] = sum
	}
}
