package ldu

import (
	"github.com/james-bowman/sparse"
)

// ToCSR assembles the internal part of the matrix (no interface
// coefficients) as a compressed sparse row matrix. The result implements
// gonum's mat.Matrix.
func (m *Matrix) ToCSR() *sparse.CSR {
	var (
		nCells = m.addr.Size()
		l      = m.addr.LowerAddr()
		u      = m.addr.UpperAddr()
		upper  = m.Upper()
		lower  = m.Lower()
		dok    = sparse.NewDOK(nCells, nCells)
	)
	for cell, d := range m.diag {
		dok.Set(cell, cell, d)
	}
	for face := range u {
		// DOK.Set overwrites, parallel faces between one cell pair accumulate
		dok.Set(l[face], u[face], dok.At(l[face], u[face])+upper[face])
		dok.Set(u[face], l[face], dok.At(u[face], l[face])+lower[face])
	}
	return dok.ToCSR()
}
