package coupled

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/parallel"
)

// chainSystem is tridiag(-1, 2, -1) on n cells with the given patches.
func chainSystem(n int, patchAddr [][]int) *ldu.Matrix {
	var (
		owner     = make([]int, n-1)
		neighbour = make([]int, n-1)
		diag      = make([]float64, n)
		upper     = make([]float64, n-1)
	)
	for face := range owner {
		owner[face], neighbour[face] = face, face+1
		upper[face] = -1
	}
	for cell := range diag {
		diag[cell] = 2
	}
	return ldu.MustMatrix(ldu.MustAddressing(n, owner, neighbour, patchAddr), diag, upper, nil)
}

func TestProcessor_Amul(t *testing.T) {
	// Six cell chain cut between cells 2 and 3, compared with the serial
	// product
	var (
		psi    = []float64{1, 4, 9, 16, 25, 36}
		serial = make([]float64, 6)
		global = make([]float64, 6)
	)
	chainSystem(6, nil).Amul(serial, psi, nil, nil)
	for _, floatTransfer := range []bool{false, true} {
		comm := parallel.NewComm(2, parallel.WithTimeout(5*time.Second))
		comm.Run(func(p *parallel.Proc) {
			var (
				rank      = p.Rank()
				faceCells = []int{2}
				offset    = 0
			)
			if rank == 1 {
				faceCells, offset = []int{0}, 3
			}
			var (
				m    = chainSystem(3, [][]int{faceCells})
				pi   = NewProcessor(faceCells, p, 1-rank, 0)
				Apsi = make([]float64, 3)
			)
			pi.FloatTransfer = floatTransfer
			m.Amul(Apsi, psi[offset:offset+3], ldu.CoeffsList{{1}}, ldu.Interfaces{pi})
			copy(global[offset:], Apsi)
		})
		for cell := range serial {
			assert.InDelta(t, serial[cell], global[cell], 1e-12, "cell %d float transfer %v", cell, floatTransfer)
		}
	}
}

func TestProcessor_Accessors(t *testing.T) {
	comm := parallel.NewComm(3)
	pi := NewProcessor([]int{4, 7}, comm.Proc(1), 2, 5)
	assert.Equal(t, []int{4, 7}, pi.FaceCells())
	assert.Equal(t, 1, pi.MyProcNo())
	assert.Equal(t, 2, pi.NeighbProcNo())
	assert.Equal(t, 5, pi.Tag())
	assert.Panics(t, func() { NewProcessor([]int{0}, comm.Proc(1), 1, 0) })
}

func TestProcessor_Sequencing(t *testing.T) {
	comm := parallel.NewComm(2)
	pi := NewProcessor([]int{0}, comm.Proc(0), 1, 0)
	psi := []float64{1}
	// Completing without initiating is a programming error
	assert.Panics(t, func() { pi.UpdateInterfaceMatrix(make([]float64, 1), psi, []float64{1}) })
	pi.InitInterfaceMatrixUpdate(psi, []float64{1})
	assert.Panics(t, func() { pi.InitInterfaceMatrixUpdate(psi, []float64{1}) })
}

func TestProcessor_SizeMismatch(t *testing.T) {
	comm := parallel.NewComm(2, parallel.WithTimeout(5*time.Second))
	var recovered interface{}
	comm.Run(func(p *parallel.Proc) {
		if p.Rank() == 0 {
			// Two faces on this side, one on the other
			pi := NewProcessor([]int{0, 1}, p, 1, 0)
			pi.InitInterfaceMatrixUpdate([]float64{1, 2}, []float64{1, 1})
			func() {
				defer func() { recovered = recover() }()
				pi.UpdateInterfaceMatrix(make([]float64, 2), []float64{1, 2}, []float64{1, 1})
			}()
			return
		}
		NewProcessor([]int{0}, p, 0, 0).InitInterfaceMatrixUpdate([]float64{3}, []float64{1})
	})
	require.NotNil(t, recovered)
	assert.ErrorIs(t, recovered.(error), ldu.ErrSizeMismatch)
}

func TestCompress(t *testing.T) {
	{ // Differences keep single precision relative to the spread of the values
		f := []float64{1000.125, 1000.5, 999.75, 1000.0001, 1000}
		g := decompress(compress(f), len(f))
		for i := range f {
			assert.InDelta(t, f[i], g[i], 1e-6)
		}
		// The reference value travels exactly
		assert.Equal(t, f[4], g[4])
	}
	{ // Plain float32 would lose this
		f := []float64{1e8 + 0.25, 1e8}
		g := decompress(compress(f), 2)
		assert.Equal(t, f, g)
		assert.NotEqual(t, f[0], float64(float32(f[0])))
	}
	{
		assert.Nil(t, compress(nil))
		assert.Nil(t, decompress(nil, 0))
		assert.Panics(t, func() { decompress(make([]byte, 5), 2) })
	}
	{ // Message size
		assert.Equal(t, 4*9+8, len(compress(make([]float64, 10))))
	}
}

func TestCyclicAndLoopback(t *testing.T) {
	// Five cell ring closed across the first and last cell; both coupling
	// flavours produce the periodic product
	var (
		N         = 5
		patchAddr = [][]int{{N - 1}, {0}}
		m         = chainSystem(N, patchAddr)
		bou       = ldu.CoeffsList{{1}, {1}}
		psi       = []float64{1, 2, 3, 5, 8}
		expected  = make([]float64, N)
	)
	for i := 0; i < N; i++ {
		expected[i] = 2*psi[i] - psi[(i+1)%N] - psi[(i+N-1)%N]
	}
	{
		a, b := NewCyclicPair(patchAddr[0], patchAddr[1])
		Apsi := make([]float64, N)
		m.Amul(Apsi, psi, bou, ldu.Interfaces{a, b})
		assert.Equal(t, expected, Apsi)
		assert.Equal(t, []int{N - 1}, a.FaceCells())
	}
	{
		a, b := NewLoopbackPair(patchAddr[0], patchAddr[1])
		Apsi := make([]float64, N)
		m.Amul(Apsi, psi, bou, ldu.Interfaces{a, b})
		assert.Equal(t, expected, Apsi)
		assert.Equal(t, []int{0}, b.FaceCells())
	}
	{
		a, _ := NewLoopbackPair([]int{0}, []int{1})
		assert.Panics(t, func() { a.UpdateInterfaceMatrix(make([]float64, 2), make([]float64, 2), []float64{1}) })
	}
	{ // Each completion consumes the partner's posted values
		var (
			a, b   = NewLoopbackPair([]int{0}, []int{1})
			psi    = []float64{3, 7}
			result = make([]float64, 2)
		)
		b.InitInterfaceMatrixUpdate(psi, []float64{1})
		a.UpdateInterfaceMatrix(result, psi, []float64{1})
		assert.Equal(t, []float64{-7, 0}, result)
		assert.Panics(t, func() { a.UpdateInterfaceMatrix(result, psi, []float64{1}) })
	}
	assert.Panics(t, func() { NewCyclicPair([]int{0}, []int{1, 2}) })
	assert.Panics(t, func() { NewLoopbackPair([]int{0, 1}, []int{2}) })
}
