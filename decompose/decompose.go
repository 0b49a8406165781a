// Package decompose splits a global LDU system into per-rank subdomains.
// Faces cut by the decomposition become processor patches: the owner side
// keeps -upper[face] as its boundary coefficient, the neighbour side
// -lower[face], and both sides list their patch faces in global face order so
// that entry j on one rank meets entry j on the other.
package decompose

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/notargets/gofvm/coupled"
	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/parallel"
)

var ErrInvalidDecomposition = errors.New("decompose: invalid decomposition")

// ProcPatch is the interface of one subdomain to one neighbouring rank.
type ProcPatch struct {
	NeighbProcNo int
	FaceCells    []int // Local cell of each cut face
	GlobalFaces  []int // Face index in the global system, ascending
	BouCoeffs    []float64
	IntCoeffs    []float64
}

// Subdomain is the share of the global system held by one rank. System has
// one patch per entry of Patches; its Interfaces stay nil until Attach.
type Subdomain struct {
	Rank    int
	Cells   []int // Global index of each local cell, ascending
	System  *ldu.System
	Patches []ProcPatch
}

// Decompose distributes sys over nProcs ranks following cellToRank. The
// global system must be free of coupled patches. A rank that receives no
// cells gets an empty subdomain.
func Decompose(sys *ldu.System, cellToRank []int, nProcs int) (sds []*Subdomain, err error) {
	var (
		addr   = sys.Matrix.Addr()
		nCells = addr.Size()
		l      = addr.LowerAddr()
		u      = addr.UpperAddr()
		upper  = sys.Matrix.Upper()
		lower  = sys.Matrix.Lower()
	)
	if nProcs < 1 {
		return nil, fmt.Errorf("%w: %d ranks", ErrInvalidDecomposition, nProcs)
	}
	if addr.NPatches() != 0 {
		return nil, fmt.Errorf("%w: global system has %d coupled patches",
			ErrInvalidDecomposition, addr.NPatches())
	}
	if len(cellToRank) != nCells {
		return nil, fmt.Errorf("%w: %d cell ranks for %d cells",
			ErrInvalidDecomposition, len(cellToRank), nCells)
	}
	if len(sys.Source) != nCells {
		return nil, fmt.Errorf("%w: source has %d entries, expected %d",
			ldu.ErrSizeMismatch, len(sys.Source), nCells)
	}
	for cell, rank := range cellToRank {
		if rank < 0 || rank >= nProcs {
			err = multierr.Append(err, fmt.Errorf("%w: cell %d on rank %d of %d",
				ErrInvalidDecomposition, cell, rank, nProcs))
		}
	}
	if err != nil {
		return nil, err
	}

	sds = make([]*Subdomain, nProcs)
	localCell := make([]int, nCells)
	for rank := range sds {
		sds[rank] = &Subdomain{Rank: rank}
	}
	for cell, rank := range cellToRank {
		sd := sds[rank]
		localCell[cell] = len(sd.Cells)
		sd.Cells = append(sd.Cells, cell)
	}

	type localFaces struct {
		owner, neighbour []int
		upper, lower     []float64
		patches          map[int]*ProcPatch
	}
	lf := make([]localFaces, nProcs)
	for rank := range lf {
		lf[rank].patches = make(map[int]*ProcPatch)
	}
	patch := func(rank, neighb int) (pp *ProcPatch) {
		if pp = lf[rank].patches[neighb]; pp == nil {
			pp = &ProcPatch{NeighbProcNo: neighb}
			lf[rank].patches[neighb] = pp
		}
		return
	}
	for face := range u {
		var (
			own, nei         = l[face], u[face]
			ownRank, neiRank = cellToRank[own], cellToRank[nei]
		)
		if ownRank == neiRank {
			f := &lf[ownRank]
			f.owner = append(f.owner, localCell[own])
			f.neighbour = append(f.neighbour, localCell[nei])
			f.upper = append(f.upper, upper[face])
			f.lower = append(f.lower, lower[face])
			continue
		}
		op := patch(ownRank, neiRank)
		op.FaceCells = append(op.FaceCells, localCell[own])
		op.GlobalFaces = append(op.GlobalFaces, face)
		op.BouCoeffs = append(op.BouCoeffs, -upper[face])
		op.IntCoeffs = append(op.IntCoeffs, -lower[face])

		np := patch(neiRank, ownRank)
		np.FaceCells = append(np.FaceCells, localCell[nei])
		np.GlobalFaces = append(np.GlobalFaces, face)
		np.BouCoeffs = append(np.BouCoeffs, -lower[face])
		np.IntCoeffs = append(np.IntCoeffs, -upper[face])
	}

	symmetric := sys.Matrix.IsSymmetric()
	for rank, sd := range sds {
		f := &lf[rank]
		var neighbs []int
		for neighb := range f.patches {
			neighbs = append(neighbs, neighb)
		}
		sort.Ints(neighbs)
		var (
			patchAddr = make([][]int, len(neighbs))
			bou       = make(ldu.CoeffsList, len(neighbs))
			intl      = make(ldu.CoeffsList, len(neighbs))
			diag      = make([]float64, len(sd.Cells))
			source    = make([]float64, len(sd.Cells))
		)
		for k, neighb := range neighbs {
			pp := f.patches[neighb]
			sd.Patches = append(sd.Patches, *pp)
			patchAddr[k] = pp.FaceCells
			bou[k] = pp.BouCoeffs
			intl[k] = pp.IntCoeffs
		}
		for i, cell := range sd.Cells {
			diag[i] = sys.Matrix.Diag()[cell]
			source[i] = sys.Source[cell]
		}
		if f.owner == nil {
			f.owner, f.neighbour, f.upper, f.lower = []int{}, []int{}, []float64{}, []float64{}
		}
		if symmetric {
			f.lower = nil
		}
		localAddr, err := ldu.NewAddressing(len(sd.Cells), f.owner, f.neighbour, patchAddr)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		m, err := ldu.NewMatrix(localAddr, diag, f.upper, f.lower)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		sd.System = &ldu.System{
			Matrix:     m,
			Source:     source,
			BouCoeffs:  bou,
			IntCoeffs:  intl,
			Interfaces: make(ldu.Interfaces, len(neighbs)),
		}
	}
	return
}

type attachConfig struct {
	floatTransfer bool
	tag           int
}

type AttachOption func(ac *attachConfig)

// WithFloatTransfer ships interface values in reduced precision.
func WithFloatTransfer(on bool) AttachOption {
	return func(ac *attachConfig) { ac.floatTransfer = on }
}

// WithTag sets the message tag of the processor interfaces, so that several
// systems can exchange over one Comm at the same time. Tags must not be
// negative.
func WithTag(tag int) AttachOption {
	return func(ac *attachConfig) { ac.tag = tag }
}

// Attach binds the processor patches of the subdomain to rank p and returns
// the ready to solve local system.
func (sd *Subdomain) Attach(p *parallel.Proc, opts ...AttachOption) *ldu.System {
	if p.Rank() != sd.Rank {
		panic(fmt.Errorf("decompose: subdomain %d attached on rank %d", sd.Rank, p.Rank()))
	}
	var ac attachConfig
	for _, opt := range opts {
		opt(&ac)
	}
	if ac.tag < 0 {
		panic(fmt.Errorf("decompose: negative tag %d is reserved", ac.tag))
	}
	for k, pp := range sd.Patches {
		pi := coupled.NewProcessor(pp.FaceCells, p, pp.NeighbProcNo, ac.tag)
		pi.FloatTransfer = ac.floatTransfer
		sd.System.Interfaces[k] = pi
	}
	return sd.System
}

// NCells is the number of cells held by the subdomain.
func (sd *Subdomain) NCells() int { return len(sd.Cells) }

// Restrict picks the local part of a global field.
func (sd *Subdomain) Restrict(global []float64) (local []float64) {
	local = make([]float64, len(sd.Cells))
	for i, cell := range sd.Cells {
		local[i] = global[cell]
	}
	return
}

// Reconstruct gathers the per-rank fields into one global field.
func Reconstruct(sds []*Subdomain, fields [][]float64) (global []float64) {
	var nCells int
	for _, sd := range sds {
		nCells += sd.NCells()
	}
	if len(fields) != len(sds) {
		panic(fmt.Errorf("%w: %d fields for %d subdomains", ldu.ErrSizeMismatch, len(fields), len(sds)))
	}
	global = make([]float64, nCells)
	for rank, sd := range sds {
		if len(fields[rank]) != sd.NCells() {
			panic(fmt.Errorf("%w: rank %d field has %d entries, expected %d",
				ldu.ErrSizeMismatch, rank, len(fields[rank]), sd.NCells()))
		}
		for i, cell := range sd.Cells {
			global[cell] = fields[rank][i]
		}
	}
	return
}
