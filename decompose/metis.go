//go:build metis
// +build metis

package decompose

import (
	"fmt"

	metis "github.com/notargets/go-metis"

	"github.com/notargets/gofvm/ldu"
)

func init() {
	RegisterMethod("metis", metisMethod)
}

// MetisImbalance is the load imbalance allowed to METIS.
var MetisImbalance float32 = 1.05

// metisMethod partitions the cell graph of the addressing minimising the
// communication volume.
func metisMethod(addr *ldu.Addressing, nProcs int) (cellToRank []int, err error) {
	nCells := addr.Size()
	if nProcs == 1 || nCells == 0 {
		return make([]int, nCells), nil
	}
	xadj, adjncy := CellGraph(addr)

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	opts[metis.OptionObjType] = metis.ObjTypeVol

	part, _, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, nil,
		int32(nProcs), nil, []float32{MetisImbalance}, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	cellToRank = make([]int, nCells)
	for cell := range cellToRank {
		cellToRank[cell] = int(part[cell])
	}
	return
}
