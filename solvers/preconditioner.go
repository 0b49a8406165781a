package solvers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/smoothers"
)

var ErrUnknownPreconditioner = errors.New("solvers: unknown preconditioner")

// Preconditioner applies an approximate inverse, wA = M^-1 rA.
type Preconditioner interface {
	Precondition(wA, rA []float64)
}

type PreconditionerFactory func(sys *ldu.System, controls Controls) (Preconditioner, error)

var (
	preconMu    sync.RWMutex
	preconTable = make(map[string]PreconditionerFactory)
)

func init() {
	RegisterPreconditioner("none", func(sys *ldu.System, _ Controls) (Preconditioner, error) {
		return noPreconditioner{}, nil
	})
	RegisterPreconditioner("diagonal", func(sys *ldu.System, _ Controls) (Preconditioner, error) {
		return NewDiagonalPreconditioner(sys.Matrix), nil
	})
	RegisterPreconditioner("DIC", func(sys *ldu.System, _ Controls) (Preconditioner, error) {
		return NewDIC(sys.Matrix), nil
	})
	RegisterPreconditioner("smoother", newSmootherPreconditioner)
}

func RegisterPreconditioner(name string, f PreconditionerFactory) {
	preconMu.Lock()
	defer preconMu.Unlock()
	if _, exists := preconTable[name]; exists {
		panic(fmt.Sprintf("solvers: preconditioner %q registered twice", name))
	}
	preconTable[name] = f
}

func NewPreconditioner(name string, sys *ldu.System, controls Controls) (Preconditioner, error) {
	preconMu.RLock()
	f, ok := preconTable[name]
	preconMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q, valid preconditioners are %v",
			ErrUnknownPreconditioner, name, PreconditionerNames())
	}
	return f(sys, controls)
}

func PreconditionerNames() (names []string) {
	preconMu.RLock()
	defer preconMu.RUnlock()
	for name := range preconTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

type noPreconditioner struct{}

func (noPreconditioner) Precondition(wA, rA []float64) { copy(wA, rA) }

// DiagonalPreconditioner is Jacobi scaling by the reciprocal diagonal.
type DiagonalPreconditioner struct {
	rD []float64
}

func NewDiagonalPreconditioner(m *ldu.Matrix) *DiagonalPreconditioner {
	diag := m.Diag()
	rD := make([]float64, len(diag))
	for cell, d := range diag {
		rD[cell] = 1. / d
	}
	return &DiagonalPreconditioner{rD: rD}
}

func (dp *DiagonalPreconditioner) Precondition(wA, rA []float64) {
	for cell, r := range dp.rD {
		wA[cell] = r * rA[cell]
	}
}

// DIC is the diagonal incomplete Cholesky preconditioner of a symmetric
// matrix. Coupled interfaces are left out of the factorisation, so on a
// decomposed system each rank factorises its own block.
type DIC struct {
	m  *ldu.Matrix
	rD []float64
}

func NewDIC(m *ldu.Matrix) *DIC {
	var (
		l     = m.Addr().LowerAddr()
		u     = m.Addr().UpperAddr()
		upper = m.Upper()
		rD    = make([]float64, len(m.Diag()))
	)
	copy(rD, m.Diag())
	for face := range upper {
		rD[u[face]] -= upper[face] * upper[face] / rD[l[face]]
	}
	for cell := range rD {
		rD[cell] = 1. / rD[cell]
	}
	return &DIC{m: m, rD: rD}
}

// ReciprocalD is the factorised diagonal.
func (dic *DIC) ReciprocalD() []float64 { return dic.rD }

func (dic *DIC) Precondition(wA, rA []float64) {
	var (
		l     = dic.m.Addr().LowerAddr()
		u     = dic.m.Addr().UpperAddr()
		upper = dic.m.Upper()
		rD    = dic.rD
	)
	for cell := range rD {
		wA[cell] = rD[cell] * rA[cell]
	}
	for face := range upper {
		wA[u[face]] -= rD[u[face]] * upper[face] * wA[l[face]]
	}
	for face := len(upper) - 1; face >= 0; face-- {
		wA[l[face]] -= rD[l[face]] * upper[face] * wA[u[face]]
	}
}

// smootherPreconditioner approximates M^-1 rA by smoothing from zero with
// the smoother named in the controls. Only symmetric sweeps keep PCG valid.
type smootherPreconditioner struct {
	smoother smoothers.Smoother
	nSweeps  int
}

func newSmootherPreconditioner(sys *ldu.System, controls Controls) (Preconditioner, error) {
	sm, err := smoothers.New(controls.Smoother, sys.Matrix, sys.BouCoeffs, sys.Interfaces)
	if err != nil {
		return nil, err
	}
	nSweeps := controls.NSweeps
	if nSweeps < 1 {
		nSweeps = 1
	}
	return &smootherPreconditioner{smoother: sm, nSweeps: nSweeps}, nil
}

func (sp *smootherPreconditioner) Precondition(wA, rA []float64) {
	for cell := range wA {
		wA[cell] = 0
	}
	sp.smoother.Smooth(wA, rA, sp.nSweeps)
}
