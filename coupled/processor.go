package coupled

import (
	"fmt"

	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/parallel"
)

// Processor couples a patch to the matching patch of a neighbouring rank.
// Both sides list their face cells in the same face order, so entry j of
// the received field belongs to face j of this patch.
type Processor struct {
	faceCells    []int
	proc         *parallel.Proc
	neighbProcNo int
	tag          int

	// FloatTransfer ships the field as float32 differences to its last entry,
	// halving the message size. Both sides must agree.
	FloatTransfer bool

	outstanding bool // Initiated, not yet completed
}

func NewProcessor(faceCells []int, proc *parallel.Proc, neighbProcNo, tag int) *Processor {
	if neighbProcNo == proc.Rank() {
		panic(fmt.Errorf("coupled: processor patch of rank %d points at itself", neighbProcNo))
	}
	return &Processor{
		faceCells:    faceCells,
		proc:         proc,
		neighbProcNo: neighbProcNo,
		tag:          tag,
	}
}

func (pi *Processor) FaceCells() []int  { return pi.faceCells }
func (pi *Processor) MyProcNo() int     { return pi.proc.Rank() }
func (pi *Processor) NeighbProcNo() int { return pi.neighbProcNo }
func (pi *Processor) Tag() int          { return pi.tag }

func (pi *Processor) InitInterfaceMatrixUpdate(psi, coeffs []float64) {
	if pi.outstanding {
		panic(fmt.Errorf("coupled: rank %d initiated a second update to rank %d before completing the first",
			pi.proc.Rank(), pi.neighbProcNo))
	}
	pif := make([]float64, len(pi.faceCells))
	for j, cell := range pi.faceCells {
		pif[j] = psi[cell]
	}
	if pi.FloatTransfer {
		pi.proc.Send(pi.neighbProcNo, pi.tag, compress(pif))
	} else {
		pi.proc.Send(pi.neighbProcNo, pi.tag, parallel.EncodeFloat64s(pif))
	}
	pi.outstanding = true
}

func (pi *Processor) UpdateInterfaceMatrix(result, psi, coeffs []float64) {
	if !pi.outstanding {
		panic(fmt.Errorf("coupled: rank %d completed an update from rank %d that was never initiated",
			pi.proc.Rank(), pi.neighbProcNo))
	}
	var (
		msg = pi.proc.Receive(pi.neighbProcNo, pi.tag)
		pnf []float64
	)
	if pi.FloatTransfer {
		pnf = decompress(msg, len(pi.faceCells))
	} else {
		pnf = parallel.DecodeFloat64s(msg)
	}
	if len(pnf) != len(pi.faceCells) {
		panic(fmt.Errorf("%w: rank %d received %d values from rank %d for %d faces",
			ldu.ErrSizeMismatch, pi.proc.Rank(), len(pnf), pi.neighbProcNo, len(pi.faceCells)))
	}
	for j, cell := range pi.faceCells {
		result[cell] -= coeffs[j] * pnf[j]
	}
	pi.outstanding = false
}

// compress stores all but the last value as float32 offsets from the last
// value, which is kept at full precision at the end of the message.
func compress(f []float64) (msg []byte) {
	if len(f) == 0 {
		return nil
	}
	var (
		nm1    = len(f) - 1
		last   = f[nm1]
		deltas = make([]float32, nm1)
	)
	for i := 0; i < nm1; i++ {
		deltas[i] = float32(f[i] - last)
	}
	msg = append(parallel.EncodeFloat32s(deltas), parallel.EncodeFloat64s([]float64{last})...)
	return
}

func decompress(msg []byte, n int) (f []float64) {
	if n == 0 {
		return nil
	}
	if len(msg) != 4*(n-1)+8 {
		panic(fmt.Errorf("%w: compressed message of %d bytes for %d values",
			ldu.ErrSizeMismatch, len(msg), n))
	}
	var (
		nm1    = n - 1
		deltas = parallel.DecodeFloat32s(msg[:4*nm1])
		last   = parallel.DecodeFloat64s(msg[4*nm1:])[0]
	)
	f = make([]float64, n)
	for i, d := range deltas {
		f[i] = float64(d) + last
	}
	f[nm1] = last
	return
}
