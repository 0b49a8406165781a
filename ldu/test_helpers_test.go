package ldu

import (
	"math"
	"math/rand"
)

// almostEqual returns true if a and b differ by less than tol.
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// chainAddressing couples consecutive cells 0-1, 1-2, ...
func chainAddressing(nCells int, patchAddr [][]int) *Addressing {
	owner := make([]int, nCells-1)
	neighbour := make([]int, nCells-1)
	for face := range owner {
		owner[face] = face
		neighbour[face] = face + 1
	}
	return MustAddressing(nCells, owner, neighbour, patchAddr)
}

// gridAddressing numbers cells row major on an nx by ny grid, each cell
// owning its east face then its north face.
func gridAddressing(nx, ny int) *Addressing {
	var owner, neighbour []int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := j*nx + i
			if i < nx-1 {
				owner = append(owner, c)
				neighbour = append(neighbour, c+1)
			}
			if j < ny-1 {
				owner = append(owner, c)
				neighbour = append(neighbour, c+nx)
			}
		}
	}
	return MustAddressing(nx*ny, owner, neighbour, nil)
}

func randomSlice(rng *rand.Rand, n int, lo, hi float64) (v []float64) {
	v = make([]float64, n)
	for i := range v {
		v[i] = lo + (hi-lo)*rng.Float64()
	}
	return
}

func constSlice(n int, val float64) (v []float64) {
	v = make([]float64, n)
	for i := range v {
		v[i] = val
	}
	return
}

// fixedInterface couples its face cells to a prescribed field, standing in
// for a counterpart on another rank.
type fixedInterface struct {
	faceCells []int
	pnf       []float64
	initiated int
	completed int
}

func (fi *fixedInterface) FaceCells() []int { return fi.faceCells }

func (fi *fixedInterface) InitInterfaceMatrixUpdate(psi, coeffs []float64) {
	fi.initiated++
}

func (fi *fixedInterface) UpdateInterfaceMatrix(result, psi, coeffs []float64) {
	fi.completed++
	for j, cell := range fi.faceCells {
		result[cell] -= coeffs[j] * fi.pnf[j]
	}
}
