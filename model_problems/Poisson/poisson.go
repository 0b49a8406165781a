// Package Poisson assembles finite volume Laplacian systems on structured
// grids in LDU form. Cell centres sit at (i+1/2)h; a Dirichlet value g is
// imposed through a ghost value one spacing outside the boundary cell, so a
// boundary face contributes 1 to the diagonal and g to the source.
package Poisson

import (
	"fmt"

	"github.com/notargets/gofvm/coupled"
	"github.com/notargets/gofvm/ldu"
)

type Field func(x, y float64) float64

// NewPoisson1D is the N cell system tridiag(-1, 2, -1) psi = b with the
// Dirichlet values left and right folded into b.
func NewPoisson1D(N int, left, right float64) (sys *ldu.System) {
	if N < 2 {
		panic(fmt.Errorf("Poisson: need at least 2 cells, have %d", N))
	}
	var (
		owner     = make([]int, N-1)
		neighbour = make([]int, N-1)
		diag      = make([]float64, N)
		upper     = make([]float64, N-1)
		source    = make([]float64, N)
	)
	for face := 0; face < N-1; face++ {
		owner[face], neighbour[face] = face, face+1
		upper[face] = -1
	}
	for cell := range diag {
		diag[cell] = 2
	}
	source[0] += left
	source[N-1] += right
	addr := ldu.MustAddressing(N, owner, neighbour, nil)
	sys = &ldu.System{
		Matrix:     ldu.MustMatrix(addr, diag, upper, nil),
		Source:     source,
		Interfaces: ldu.Interfaces{},
	}
	return
}

// NewPeriodic1D is the N cell ring (2+sigma) psi_i - psi_{i-1} - psi_{i+1}
// = f_i, closed between the last and first cell by a cyclic pair. sigma > 0
// keeps the system regular.
func NewPeriodic1D(N int, sigma float64, f []float64) (sys *ldu.System) {
	if len(f) != N {
		panic(fmt.Errorf("%w: source has %d entries for %d cells", ldu.ErrSizeMismatch, len(f), N))
	}
	var (
		owner     = make([]int, N-1)
		neighbour = make([]int, N-1)
		diag      = make([]float64, N)
		upper     = make([]float64, N-1)
		source    = make([]float64, N)
		patchAddr = [][]int{{N - 1}, {0}}
	)
	for face := 0; face < N-1; face++ {
		owner[face], neighbour[face] = face, face+1
		upper[face] = -1
	}
	for cell := range diag {
		diag[cell] = 2 + sigma
	}
	copy(source, f)
	a, b := coupled.NewCyclicPair(patchAddr[0], patchAddr[1])
	addr := ldu.MustAddressing(N, owner, neighbour, patchAddr)
	sys = &ldu.System{
		Matrix:     ldu.MustMatrix(addr, diag, upper, nil),
		Source:     source,
		BouCoeffs:  ldu.CoeffsList{{1}, {1}},
		IntCoeffs:  ldu.CoeffsList{{1}, {1}},
		Interfaces: ldu.Interfaces{a, b},
	}
	return
}

// NewPoisson2D is the nx by ny five point Laplacian on [0,1]^2 with unit
// face coefficients, -Laplace(psi) = f scaled by h^2, and psi = g on the
// ghost ring. Cells are numbered row major and own their east then north
// faces.
func NewPoisson2D(nx, ny int, f, g Field) (sys *ldu.System) {
	if nx < 1 || ny < 1 {
		panic(fmt.Errorf("Poisson: invalid grid %d x %d", nx, ny))
	}
	var (
		N         = nx * ny
		hx        = 1. / float64(nx)
		hy        = 1. / float64(ny)
		owner     []int
		neighbour []int
		upper     []float64
		diag      = make([]float64, N)
		source    = make([]float64, N)
	)
	xc := func(i int) float64 { return (float64(i) + 0.5) * hx }
	yc := func(j int) float64 { return (float64(j) + 0.5) * hy }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := j*nx + i
			diag[c] = 4
			if f != nil {
				source[c] = f(xc(i), yc(j)) * hx * hy
			}
			if i < nx-1 {
				owner, neighbour = append(owner, c), append(neighbour, c+1)
				upper = append(upper, -1)
			}
			if j < ny-1 {
				owner, neighbour = append(owner, c), append(neighbour, c+nx)
				upper = append(upper, -1)
			}
			if g == nil {
				continue
			}
			if i == 0 {
				source[c] += g(xc(-1), yc(j))
			}
			if i == nx-1 {
				source[c] += g(xc(nx), yc(j))
			}
			if j == 0 {
				source[c] += g(xc(i), yc(-1))
			}
			if j == ny-1 {
				source[c] += g(xc(i), yc(ny))
			}
		}
	}
	if owner == nil {
		owner, neighbour, upper = []int{}, []int{}, []float64{}
	}
	addr := ldu.MustAddressing(N, owner, neighbour, nil)
	sys = &ldu.System{
		Matrix:     ldu.MustMatrix(addr, diag, upper, nil),
		Source:     source,
		Interfaces: ldu.Interfaces{},
	}
	return
}

// CellCentres returns the centre coordinates of the NewPoisson2D cells.
func CellCentres(nx, ny int) (x, y []float64) {
	x = make([]float64, nx*ny)
	y = make([]float64, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			x[j*nx+i] = (float64(i) + 0.5) / float64(nx)
			y[j*nx+i] = (float64(j) + 0.5) / float64(ny)
		}
	}
	return
}
