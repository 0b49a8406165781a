// Package smoothers holds the relaxation methods that operate on an LDU
// matrix. Each method registers a Factory under its name; solvers select a
// smoother by that name at construction time.
package smoothers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/notargets/gofvm/ldu"
)

var ErrUnknownSmoother = errors.New("smoothers: unknown smoother")

// Smoother relaxes psi towards the solution of A psi = source. The matrix,
// its boundary coefficients and interfaces are bound at construction.
type Smoother interface {
	Smooth(psi, source []float64, nSweeps int)
}

// Factory builds a smoother over a matrix and its coupled interfaces.
type Factory func(m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) Smoother

var (
	tableMu sync.RWMutex
	table   = make(map[string]Factory)
)

// Register adds a smoother to the selection table. Registering a name twice
// is a programming error.
func Register(name string, f Factory) {
	tableMu.Lock()
	defer tableMu.Unlock()
	if _, exists := table[name]; exists {
		panic(fmt.Sprintf("smoothers: %q registered twice", name))
	}
	table[name] = f
}

// New selects a smoother by name.
func New(name string, m *ldu.Matrix, bouCoeffs ldu.CoeffsList, interfaces ldu.Interfaces) (Smoother, error) {
	tableMu.RLock()
	f, ok := table[name]
	tableMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q, valid smoothers are %v", ErrUnknownSmoother, name, Names())
	}
	return f(m, bouCoeffs, interfaces), nil
}

// Names lists the registered smoothers in sorted order.
func Names() (names []string) {
	tableMu.RLock()
	defer tableMu.RUnlock()
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func checkArgs(m *ldu.Matrix, psi, source []float64) {
	n := m.Addr().Size()
	if len(psi) != n || len(source) != n {
		panic(fmt.Errorf("%w: psi has %d entries, source %d, matrix %d rows",
			ldu.ErrSizeMismatch, len(psi), len(source), n))
	}
}

// growTo returns buf resized to n, reusing its storage when possible.
func growTo(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
