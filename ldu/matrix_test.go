package ldu

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMatrix_Storage(t *testing.T) {
	la := chainAddressing(5, nil)
	{ // Symmetric when lower is absent or aliases upper
		upper := constSlice(4, -1)
		m := MustMatrix(la, constSlice(5, 2), upper, nil)
		assert.True(t, m.IsSymmetric())
		assert.Equal(t, m.Upper(), m.Lower())
		m = MustMatrix(la, constSlice(5, 2), upper, upper)
		assert.True(t, m.IsSymmetric())
		m = MustMatrix(la, constSlice(5, 2), upper, constSlice(4, -1))
		assert.True(t, m.IsAsymmetric())
	}
	{ // Size mismatches name the array and both sizes
		_, err := NewMatrix(la, constSlice(4, 2), constSlice(4, -1), constSlice(3, -1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSizeMismatch))
		assert.Contains(t, err.Error(), "diag has 4 entries, expected 5")
		assert.Contains(t, err.Error(), "lower has 3 entries, expected 4")
	}
	{ // Zero diagonal is reported with its cell
		diag := constSlice(5, 2)
		diag[3] = 0
		m := MustMatrix(la, diag, constSlice(4, -1), nil)
		err := m.CheckDiag()
		assert.True(t, errors.Is(err, ErrSingularRow))
		assert.Contains(t, err.Error(), "cell 3")
	}
}

func TestCoeffsList_Negate(t *testing.T) {
	cl := CoeffsList{{1, -2.5}, nil, {3}}
	mcl := cl.Negated()
	assert.Equal(t, CoeffsList{{-1, 2.5}, nil, {-3}}, mcl)
	assert.Equal(t, CoeffsList{{1, -2.5}, nil, {3}}, cl)
	cl.Negate()
	assert.Equal(t, mcl, cl)
	cl.Negate()
	assert.Equal(t, CoeffsList{{1, -2.5}, nil, {3}}, cl)
}

func TestSystem_Validate(t *testing.T) {
	la := chainAddressing(3, [][]int{{2}, {0}})
	m := MustMatrix(la, constSlice(3, 2), constSlice(2, -1), nil)
	sys := &System{
		Matrix:     m,
		Source:     make([]float64, 3),
		BouCoeffs:  CoeffsList{{1}, nil},
		Interfaces: Interfaces{&fixedInterface{faceCells: []int{2}, pnf: []float64{0}}, nil},
	}
	assert.NoError(t, sys.Validate())
	sys.BouCoeffs = CoeffsList{{1, 1}, nil}
	sys.Source = make([]float64, 2)
	err := sys.Validate()
	assert.True(t, errors.Is(err, ErrSizeMismatch))
	assert.Contains(t, err.Error(), "BouCoeffs[0] has 2 entries, expected 1")
	assert.Contains(t, err.Error(), "source has 2 entries")
}

func TestMatrix_Amul(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	la := gridAddressing(5, 4)
	var (
		n   = la.Size()
		nf  = la.NFaces()
		psi = randomSlice(rng, n, -1, 1)
	)
	for _, m := range []*Matrix{
		MustMatrix(la, randomSlice(rng, n, 4, 5), randomSlice(rng, nf, -1, 0), nil),
		MustMatrix(la, randomSlice(rng, n, 4, 5), randomSlice(rng, nf, -1, 0), randomSlice(rng, nf, -1, 0)),
	} {
		var (
			Apsi  = make([]float64, n)
			ApsiN = make([]float64, n)
			ref   mat.VecDense
		)
		m.Amul(Apsi, psi, nil, nil)
		m.AmulNeighbourRows(ApsiN, psi)
		ref.MulVec(m.ToCSR(), mat.NewVecDense(n, psi))
		for cell := 0; cell < n; cell++ {
			assert.InDelta(t, ref.AtVec(cell), Apsi[cell], 1e-12)
			assert.InDelta(t, Apsi[cell], ApsiN[cell], 1e-12)
		}
		{ // Transpose product against the assembled transpose
			var (
				Tpsi = make([]float64, n)
				refT mat.VecDense
			)
			m.Tmul(Tpsi, psi, nil, nil)
			refT.MulVec(m.ToCSR().T(), mat.NewVecDense(n, psi))
			for cell := 0; cell < n; cell++ {
				assert.InDelta(t, refT.AtVec(cell), Tpsi[cell], 1e-12)
			}
		}
	}
	assert.Panics(t, func() {
		m := MustMatrix(la, constSlice(n, 4), constSlice(nf, -1), nil)
		m.Amul(make([]float64, n), make([]float64, n-1), nil, nil)
	})
}

// coupledChain is cells {0,1} of the chain 0-1-2 with cell 2 behind an
// interface. The coupling coefficient -1 enters as the source coefficient +1.
func coupledChain(pnf float64) (m *Matrix, bouCoeffs CoeffsList, interfaces Interfaces, fi *fixedInterface) {
	la := chainAddressing(2, [][]int{{1}})
	m = MustMatrix(la, constSlice(2, 2), constSlice(1, -1), nil)
	fi = &fixedInterface{faceCells: []int{1}, pnf: []float64{pnf}}
	return m, CoeffsList{{1}}, Interfaces{fi}, fi
}

func TestMatrix_Residual(t *testing.T) {
	{ // Exact solution of tridiag(-1,2,-1) x = [1,0,0,0,1] is all ones
		la := chainAddressing(5, nil)
		m := MustMatrix(la, constSlice(5, 2), constSlice(4, -1), nil)
		rA := make([]float64, 5)
		m.Residual(rA, constSlice(5, 1), []float64{1, 0, 0, 0, 1}, nil, nil)
		for _, r := range rA {
			assert.InDelta(t, 0, r, 1e-15)
		}
	}
	{ // Coupled coefficients act with source sign and are left untouched
		m, bouCoeffs, interfaces, fi := coupledChain(1)
		rA := make([]float64, 2)
		m.Residual(rA, []float64{1, 1}, []float64{1, 0}, bouCoeffs, interfaces)
		assert.InDelta(t, 0, rA[0], 1e-15)
		assert.InDelta(t, 0, rA[1], 1e-15)
		assert.Equal(t, CoeffsList{{1}}, bouCoeffs)
		assert.Equal(t, 1, fi.initiated)
		assert.Equal(t, 1, fi.completed)

		Apsi := make([]float64, 2)
		m.Amul(Apsi, []float64{1, 1}, bouCoeffs, interfaces)
		assert.InDelta(t, 1, Apsi[0], 1e-15)
		assert.InDelta(t, 0, Apsi[1], 1e-15)
	}
}

func TestMatrix_SumAndNorms(t *testing.T) {
	m, bouCoeffs, interfaces, _ := coupledChain(0)
	sumA := make([]float64, 2)
	m.SumA(sumA, bouCoeffs, interfaces)
	assert.Equal(t, []float64{1, 0}, sumA)
	assert.Equal(t, []float64{3, 3}, m.RowNorm())

	{ // A uniform field on a conservative operator normalises by the source alone
		la := chainAddressing(5, nil)
		m := MustMatrix(la, []float64{2, 2, 2, 2, 2}, constSlice(4, -1), nil)
		var (
			psi    = constSlice(5, 3)
			source = []float64{1, 0, 0, 0, 1}
			Apsi   = make([]float64, 5)
			tmp    = make([]float64, 5)
		)
		m.Amul(Apsi, psi, nil, nil)
		nf := m.NormFactor(psi, source, Apsi, tmp, nil, nil, SerialReducer{})
		// sumA = [1,0,0,0,1], xRef = 3: |Apsi-3sumA| = 0, |source-3sumA| = [2,0,0,0,2]
		assert.True(t, almostEqual(4, nf, 1e-12))
	}
}
