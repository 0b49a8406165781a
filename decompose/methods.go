package decompose

import (
	"fmt"
	"sort"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/parallel"
)

// Method assigns every cell of the addressing to one of nProcs ranks.
type Method func(addr *ldu.Addressing, nProcs int) (cellToRank []int, err error)

var (
	methodMu sync.RWMutex
	methods  = make(map[string]Method)
)

func init() {
	RegisterMethod("simple", simple)
}

func RegisterMethod(name string, m Method) {
	methodMu.Lock()
	defer methodMu.Unlock()
	if _, exists := methods[name]; exists {
		panic(fmt.Sprintf("decompose: method %q registered twice", name))
	}
	methods[name] = m
}

func MethodNames() (names []string) {
	methodMu.RLock()
	defer methodMu.RUnlock()
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// CellToRank runs the named decomposition method.
func CellToRank(name string, addr *ldu.Addressing, nProcs int) ([]int, error) {
	methodMu.RLock()
	m, ok := methods[name]
	methodMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown method %q, valid methods are %v",
			ErrInvalidDecomposition, name, MethodNames())
	}
	if nProcs < 1 {
		return nil, fmt.Errorf("%w: %d ranks", ErrInvalidDecomposition, nProcs)
	}
	return m(addr, nProcs)
}

// simple splits the cells in index order into contiguous blocks.
func simple(addr *ldu.Addressing, nProcs int) ([]int, error) {
	return parallel.NewPartitionMap(nProcs, addr.Size()).Assignment(), nil
}

// Stats summarises a decomposition.
type Stats struct {
	CellsPerRank []int
	CutFaces     int
	MaxNeighbs   int // Largest number of neighbouring ranks of any rank
}

// Imbalance is the largest rank size over the mean rank size.
func (st Stats) Imbalance() float64 {
	var total, max int
	for _, n := range st.CellsPerRank {
		total += n
		if n > max {
			max = n
		}
	}
	if total == 0 {
		return 1
	}
	return float64(max*len(st.CellsPerRank)) / float64(total)
}

func Analyse(sds []*Subdomain) (st Stats) {
	st.CellsPerRank = make([]int, len(sds))
	for rank, sd := range sds {
		st.CellsPerRank[rank] = sd.NCells()
		for _, pp := range sd.Patches {
			st.CutFaces += len(pp.FaceCells)
		}
		if len(sd.Patches) > st.MaxNeighbs {
			st.MaxNeighbs = len(sd.Patches)
		}
	}
	// Every cut face is seen from both sides
	st.CutFaces /= 2
	return
}

func (st Stats) Log() {
	jww.INFO.Printf("Decomposed into %d ranks, %d cut faces, imbalance %.3f, at most %d neighbours",
		len(st.CellsPerRank), st.CutFaces, st.Imbalance(), st.MaxNeighbs)
	for rank, n := range st.CellsPerRank {
		jww.DEBUG.Printf("  rank %d: %d cells", rank, n)
	}
}
