package ldu

import (
	"fmt"

	"go.uber.org/multierr"
)

// Matrix stores the coefficients of a finite volume matrix over an
// Addressing: one diagonal coefficient per cell and an upper/lower pair per
// internal face. upper[f] multiplies psi[neighbour] in the owner row, lower[f]
// multiplies psi[owner] in the neighbour row. A symmetric matrix shares one
// slice for both.
type Matrix struct {
	addr  *Addressing
	diag  []float64
	upper []float64
	lower []float64
}

// NewMatrix wraps the coefficient slices without copying. A nil lower, or a
// lower sharing upper's backing array, makes the matrix symmetric.
func NewMatrix(addr *Addressing, diag, upper, lower []float64) (m *Matrix, err error) {
	var (
		nCells = addr.Size()
		nFaces = addr.NFaces()
	)
	if len(diag) != nCells {
		err = multierr.Append(err, fmt.Errorf("%w: diag has %d entries, expected %d",
			ErrSizeMismatch, len(diag), nCells))
	}
	if len(upper) != nFaces {
		err = multierr.Append(err, fmt.Errorf("%w: upper has %d entries, expected %d",
			ErrSizeMismatch, len(upper), nFaces))
	}
	if lower != nil && len(lower) != nFaces {
		err = multierr.Append(err, fmt.Errorf("%w: lower has %d entries, expected %d",
			ErrSizeMismatch, len(lower), nFaces))
	}
	if err != nil {
		return nil, err
	}
	m = &Matrix{
		addr:  addr,
		diag:  diag,
		upper: upper,
		lower: lower,
	}
	return
}

// MustMatrix panics if the coefficient sizes do not match the addressing.
func MustMatrix(addr *Addressing, diag, upper, lower []float64) *Matrix {
	m, err := NewMatrix(addr, diag, upper, lower)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matrix) Addr() *Addressing { return m.addr }

func (m *Matrix) IsSymmetric() bool {
	if m.lower == nil {
		return true
	}
	if len(m.lower) == 0 {
		return len(m.upper) == 0
	}
	return &m.lower[0] == &m.upper[0]
}

func (m *Matrix) IsAsymmetric() bool { return !m.IsSymmetric() }

func (m *Matrix) HasDiag() bool  { return m.diag != nil }
func (m *Matrix) HasUpper() bool { return m.upper != nil }
func (m *Matrix) HasLower() bool { return m.lower != nil }

func (m *Matrix) Diag() []float64  { return m.diag }
func (m *Matrix) Upper() []float64 { return m.upper }

// Lower returns the neighbour-row coefficients, which are the upper
// coefficients for a symmetric matrix.
func (m *Matrix) Lower() []float64 {
	if m.lower == nil {
		return m.upper
	}
	return m.lower
}

// CheckDiag reports the first zero diagonal coefficient.
func (m *Matrix) CheckDiag() error {
	for cell, d := range m.diag {
		if d == 0 {
			return fmt.Errorf("%w: cell %d", ErrSingularRow, cell)
		}
	}
	return nil
}

// Interfaces holds one entry per patch of the addressing; nil entries are
// patches without coupling.
type Interfaces []Interface

// CoeffsList holds one boundary coefficient list per patch.
type CoeffsList [][]float64

// Negate flips the sign of every coefficient in place.
func (cl CoeffsList) Negate() {
	for _, coeffs := range cl {
		for j := range coeffs {
			coeffs[j] = -coeffs[j]
		}
	}
}

// Negated returns a negated copy.
func (cl CoeffsList) Negated() (mcl CoeffsList) {
	mcl = make(CoeffsList, len(cl))
	for k, coeffs := range cl {
		if coeffs == nil {
			continue
		}
		mcl[k] = make([]float64, len(coeffs))
		for j, c := range coeffs {
			mcl[k][j] = -c
		}
	}
	return
}

// System is an assembled linear system as handed over by discretisation.
type System struct {
	Matrix     *Matrix
	Source     []float64
	BouCoeffs  CoeffsList // Source-side coupling coefficients, per patch
	IntCoeffs  CoeffsList // Diagonal-side coupling coefficients, per patch
	Interfaces Interfaces
}

// Validate checks that the source and every per-patch list match the
// addressing.
func (sys *System) Validate() (err error) {
	var (
		addr   = sys.Matrix.Addr()
		nCells = addr.Size()
	)
	if len(sys.Source) != nCells {
		err = multierr.Append(err, fmt.Errorf("%w: source has %d entries, expected %d",
			ErrSizeMismatch, len(sys.Source), nCells))
	}
	if len(sys.Interfaces) != addr.NPatches() {
		err = multierr.Append(err, fmt.Errorf("%w: %d interfaces for %d patches",
			ErrSizeMismatch, len(sys.Interfaces), addr.NPatches()))
		return
	}
	check := func(name string, cl CoeffsList) {
		if cl == nil {
			return
		}
		if len(cl) != len(sys.Interfaces) {
			err = multierr.Append(err, fmt.Errorf("%w: %s has %d lists for %d interfaces",
				ErrSizeMismatch, name, len(cl), len(sys.Interfaces)))
			return
		}
		for k, intf := range sys.Interfaces {
			if intf == nil {
				continue
			}
			sizeK := len(addr.PatchAddr(k))
			if len(cl[k]) != sizeK {
				err = multierr.Append(err, fmt.Errorf("%w: %s[%d] has %d entries, expected %d",
					ErrSizeMismatch, name, k, len(cl[k]), sizeK))
			}
			if len(intf.FaceCells()) != sizeK {
				err = multierr.Append(err, fmt.Errorf("%w: interface %d has %d face cells, expected %d",
					ErrSizeMismatch, k, len(intf.FaceCells()), sizeK))
			}
		}
	}
	check("BouCoeffs", sys.BouCoeffs)
	check("IntCoeffs", sys.IntCoeffs)
	return
}
