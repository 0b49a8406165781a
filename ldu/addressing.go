package ldu

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	ErrNonContiguousOwner = errors.New("ldu: owner addressing is not contiguous")
	ErrAddressOutOfRange  = errors.New("ldu: cell index out of range")
	ErrSizeMismatch       = errors.New("ldu: size mismatch")
	ErrSingularRow        = errors.New("ldu: singular row (zero diagonal)")
	ErrLowerUpperOrder    = errors.New("ldu: face neighbour below its owner")
)

// Addressing is the face based description of the sparsity pattern of an
// LDU matrix. Cells are rows, internal faces couple an owner (lower address)
// and a neighbour (upper address). Faces are ordered so that all faces owned
// by one cell occupy a contiguous range, giving O(1) row traversal through
// the ownerStart offsets.
type Addressing struct {
	nCells int

	lowerAddr []int // owner cell of each face
	upperAddr []int // neighbour cell of each face

	ownerStart  []int // Length nCells+1
	losort      []int // Faces sorted by neighbour
	losortStart []int // Length nCells+1

	patchAddr [][]int // Face cells of each coupled patch
}

// NewAddressing validates the owner/neighbour lists and builds the derived
// offset arrays. All violations found are reported together.
func NewAddressing(nCells int, owner, neighbour []int, patchAddr [][]int) (la *Addressing, err error) {
	if nCells < 0 {
		return nil, fmt.Errorf("%w: negative cell count %d", ErrSizeMismatch, nCells)
	}
	if len(owner) != len(neighbour) {
		return nil, fmt.Errorf("%w: len(owner) = %d, len(neighbour) = %d",
			ErrSizeMismatch, len(owner), len(neighbour))
	}
	for face := range owner {
		own, nei := owner[face], neighbour[face]
		if own < 0 || own >= nCells {
			err = multierr.Append(err, fmt.Errorf("%w: face %d owner %d, nCells %d",
				ErrAddressOutOfRange, face, own, nCells))
		}
		if nei < 0 || nei >= nCells {
			err = multierr.Append(err, fmt.Errorf("%w: face %d neighbour %d, nCells %d",
				ErrAddressOutOfRange, face, nei, nCells))
		}
		if own == nei {
			err = multierr.Append(err, fmt.Errorf("%w: face %d couples cell %d to itself",
				ErrAddressOutOfRange, face, own))
		} else if nei < own && own < nCells && nei >= 0 {
			// The ordered sweeps and the DIC factorisation need owner < neighbour
			err = multierr.Append(err, fmt.Errorf("%w: face %d owner %d, neighbour %d",
				ErrLowerUpperOrder, face, own, nei))
		}
		if face > 0 && own < owner[face-1] {
			err = multierr.Append(err, fmt.Errorf("%w: face %d owner %d follows face %d owner %d",
				ErrNonContiguousOwner, face, own, face-1, owner[face-1]))
		}
	}
	for k, fc := range patchAddr {
		for j, cell := range fc {
			if cell < 0 || cell >= nCells {
				err = multierr.Append(err, fmt.Errorf("%w: patch %d face %d cell %d, nCells %d",
					ErrAddressOutOfRange, k, j, cell, nCells))
			}
		}
	}
	if err != nil {
		return nil, err
	}

	la = &Addressing{
		nCells:    nCells,
		lowerAddr: owner,
		upperAddr: neighbour,
		patchAddr: patchAddr,
	}
	la.calcOwnerStart()
	la.calcLosort()
	return
}

// MustAddressing is NewAddressing for assembly code where a bad addressing is
// a programming error.
func MustAddressing(nCells int, owner, neighbour []int, patchAddr [][]int) *Addressing {
	la, err := NewAddressing(nCells, owner, neighbour, patchAddr)
	if err != nil {
		panic(err)
	}
	return la
}

func (la *Addressing) calcOwnerStart() {
	var (
		nFaces = len(la.lowerAddr)
		face   int
	)
	la.ownerStart = make([]int, la.nCells+1)
	for cell := 0; cell < la.nCells; cell++ {
		la.ownerStart[cell] = face
		for face < nFaces && la.lowerAddr[face] == cell {
			face++
		}
	}
	la.ownerStart[la.nCells] = nFaces
}

// calcLosort orders faces by neighbour with a counting sort, stable in face
// index within each neighbour row.
func (la *Addressing) calcLosort() {
	var (
		nFaces = len(la.upperAddr)
		count  = make([]int, la.nCells+1)
	)
	for _, nei := range la.upperAddr {
		count[nei+1]++
	}
	for cell := 0; cell < la.nCells; cell++ {
		count[cell+1] += count[cell]
	}
	la.losortStart = make([]int, la.nCells+1)
	copy(la.losortStart, count)
	la.losort = make([]int, nFaces)
	for face, nei := range la.upperAddr {
		la.losort[count[nei]] = face
		count[nei]++
	}
}

func (la *Addressing) Size() int   { return la.nCells }
func (la *Addressing) NFaces() int { return len(la.lowerAddr) }

// OwnerStart returns the first face owned by cell; faces owned by cell are
// [OwnerStart(cell), OwnerStart(cell+1)).
func (la *Addressing) OwnerStart(cell int) int { return la.ownerStart[cell] }
func (la *Addressing) Owner(face int) int      { return la.lowerAddr[face] }
func (la *Addressing) Neighbour(face int) int  { return la.upperAddr[face] }

func (la *Addressing) LowerAddr() []int       { return la.lowerAddr }
func (la *Addressing) UpperAddr() []int       { return la.upperAddr }
func (la *Addressing) OwnerStartAddr() []int  { return la.ownerStart }
func (la *Addressing) LosortAddr() []int      { return la.losort }
func (la *Addressing) LosortStartAddr() []int { return la.losortStart }

func (la *Addressing) NPatches() int        { return len(la.patchAddr) }
func (la *Addressing) PatchAddr(k int) []int { return la.patchAddr[k] }
