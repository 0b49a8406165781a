package decompose

import (
	"github.com/notargets/gofvm/ldu"
)

// CellGraph is the cell adjacency in the compressed row form taken by METIS:
// the neighbours of a cell across its owned faces, then across the faces it
// is neighbour of in losort order.
func CellGraph(addr *ldu.Addressing) (xadj, adjncy []int32) {
	var (
		nCells      = addr.Size()
		l           = addr.LowerAddr()
		u           = addr.UpperAddr()
		ownStart    = addr.OwnerStartAddr()
		losort      = addr.LosortAddr()
		losortStart = addr.LosortStartAddr()
	)
	xadj = make([]int32, nCells+1)
	adjncy = make([]int32, 0, 2*addr.NFaces())
	for cell := 0; cell < nCells; cell++ {
		for face := ownStart[cell]; face < ownStart[cell+1]; face++ {
			adjncy = append(adjncy, int32(u[face]))
		}
		for i := losortStart[cell]; i < losortStart[cell+1]; i++ {
			adjncy = append(adjncy, int32(l[losort[i]]))
		}
		xadj[cell+1] = int32(len(adjncy))
	}
	return
}
