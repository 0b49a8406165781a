package coupled

import (
	"fmt"

	"github.com/notargets/gofvm/ldu"
)

// Cyclic couples two patches of the same rank, face j of one side to face j
// of the other. The partner values are read when the update completes;
// there is nothing to post.
type Cyclic struct {
	faceCells []int
	partner   *Cyclic
}

// NewCyclicPair returns the two halves of a periodic coupling.
func NewCyclicPair(faceCellsA, faceCellsB []int) (a, b *Cyclic) {
	if len(faceCellsA) != len(faceCellsB) {
		panic(fmt.Errorf("%w: cyclic halves have %d and %d faces",
			ldu.ErrSizeMismatch, len(faceCellsA), len(faceCellsB)))
	}
	a = &Cyclic{faceCells: faceCellsA}
	b = &Cyclic{faceCells: faceCellsB}
	a.partner, b.partner = b, a
	return
}

func (ci *Cyclic) FaceCells() []int { return ci.faceCells }

func (ci *Cyclic) InitInterfaceMatrixUpdate(psi, coeffs []float64) {}

func (ci *Cyclic) UpdateInterfaceMatrix(result, psi, coeffs []float64) {
	for j, cell := range ci.faceCells {
		result[cell] -= coeffs[j] * psi[ci.partner.faceCells[j]]
	}
}

// Loopback is the single rank stand-in for a processor pair: the posted
// values are copied into a buffer that the partner consumes on completion.
type Loopback struct {
	faceCells []int
	partner   *Loopback
	buf       []float64
	posted    bool
}

func NewLoopbackPair(faceCellsA, faceCellsB []int) (a, b *Loopback) {
	if len(faceCellsA) != len(faceCellsB) {
		panic(fmt.Errorf("%w: loopback halves have %d and %d faces",
			ldu.ErrSizeMismatch, len(faceCellsA), len(faceCellsB)))
	}
	a = &Loopback{faceCells: faceCellsA, buf: make([]float64, len(faceCellsA))}
	b = &Loopback{faceCells: faceCellsB, buf: make([]float64, len(faceCellsB))}
	a.partner, b.partner = b, a
	return
}

func (li *Loopback) FaceCells() []int { return li.faceCells }

func (li *Loopback) InitInterfaceMatrixUpdate(psi, coeffs []float64) {
	for j, cell := range li.faceCells {
		li.buf[j] = psi[cell]
	}
	li.posted = true
}

func (li *Loopback) UpdateInterfaceMatrix(result, psi, coeffs []float64) {
	if !li.partner.posted {
		panic(fmt.Errorf("coupled: loopback update completed before the partner posted"))
	}
	for j, cell := range li.faceCells {
		result[cell] -= coeffs[j] * li.partner.buf[j]
	}
	li.partner.posted = false
}
