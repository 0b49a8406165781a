// Package solvers drives the LDU smoothers and Krylov methods to a residual
// tolerance. Solvers are selected by name from a run-time table, in the same
// way as smoothers.
package solvers

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gofvm/ldu"
)

const (
	Great  = 1.0e+20
	VSmall = 1.0e-300
)

var (
	ErrUnknownSolver = errors.New("solvers: unknown solver")
	ErrNotSupported  = errors.New("solvers: system not supported by solver")
)

// Controls are the per-field solver settings of the input file.
type Controls struct {
	Tolerance      float64 `json:"Tolerance"`
	RelTol         float64 `json:"RelTol"`
	MaxIter        int     `json:"MaxIter"`
	MinIter        int     `json:"MinIter"`
	NSweeps        int     `json:"NSweeps"` // Negative: smooth that many sweeps without residual checks
	Smoother       string  `json:"Smoother"`
	Preconditioner string  `json:"Preconditioner"`
	Debug          bool    `json:"Debug"` // Validate the system before solving
}

func DefaultControls() Controls {
	return Controls{
		Tolerance:      1e-6,
		MaxIter:        1000,
		NSweeps:        1,
		Smoother:       "symGaussSeidel",
		Preconditioner: "DIC",
	}
}

// withDefaults fills unset fields from DefaultControls.
func (c Controls) withDefaults() Controls {
	def := DefaultControls()
	if c.Tolerance == 0 {
		c.Tolerance = def.Tolerance
	}
	if c.MaxIter == 0 {
		c.MaxIter = def.MaxIter
	}
	if c.NSweeps == 0 {
		c.NSweeps = def.NSweeps
	}
	if c.Smoother == "" {
		c.Smoother = def.Smoother
	}
	if c.Preconditioner == "" {
		c.Preconditioner = def.Preconditioner
	}
	return c
}

// Performance reports one solve. Residuals are normalised sums of the
// absolute residual, see ldu.Matrix.NormFactor.
type Performance struct {
	SolverName      string
	FieldName       string
	InitialResidual float64
	FinalResidual   float64
	NIterations     int
	Converged       bool
	Singular        bool
}

func (sp *Performance) checkConvergence(tolerance, relTol float64) bool {
	sp.Converged = sp.FinalResidual < tolerance ||
		(relTol > ldu.Small && sp.FinalResidual < relTol*sp.InitialResidual)
	return sp.Converged
}

func (sp *Performance) checkSingularity(residual float64) bool {
	sp.Singular = residual < VSmall
	return sp.Singular
}

// Diverged reports a residual that is no longer a finite number.
func (sp Performance) Diverged() bool {
	return math.IsNaN(sp.FinalResidual) || math.IsInf(sp.FinalResidual, 0)
}

func (sp Performance) String() string {
	s := fmt.Sprintf("%s:  Solving for %s, Initial residual = %g, Final residual = %g, No Iterations %d",
		sp.SolverName, sp.FieldName, sp.InitialResidual, sp.FinalResidual, sp.NIterations)
	if sp.Singular {
		s += " (singular)"
	}
	return s
}

// Solver solves A psi = source in place. Convergence is reported, not
// enforced: a solve that hits MaxIter returns with Converged false.
type Solver interface {
	Solve(psi, source []float64) Performance
}

type Factory func(fieldName string, sys *ldu.System, reduce ldu.Reducer, controls Controls) (Solver, error)

var (
	tableMu sync.RWMutex
	table   = make(map[string]Factory)
)

func Register(name string, f Factory) {
	tableMu.Lock()
	defer tableMu.Unlock()
	if _, exists := table[name]; exists {
		panic(fmt.Sprintf("solvers: %q registered twice", name))
	}
	table[name] = f
}

// New selects a solver by name. A nil reduce solves on a single rank.
func New(name, fieldName string, sys *ldu.System, reduce ldu.Reducer, controls Controls) (Solver, error) {
	tableMu.RLock()
	f, ok := table[name]
	tableMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q, valid solvers are %v", ErrUnknownSolver, name, Names())
	}
	controls = controls.withDefaults()
	if controls.Debug {
		if err := multierr.Combine(sys.Validate(), sys.Matrix.CheckDiag()); err != nil {
			return nil, fmt.Errorf("solving for %s: %w", fieldName, err)
		}
	}
	if reduce == nil {
		reduce = ldu.SerialReducer{}
	}
	return f(fieldName, sys, reduce, controls)
}

func Names() (names []string) {
	tableMu.RLock()
	defer tableMu.RUnlock()
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// sumMag is the global sum of |v|.
func sumMag(reduce ldu.Reducer, v []float64) float64 {
	return reduce.Sum(floats.Norm(v, 1))
}

// sumProd is the global dot product.
func sumProd(reduce ldu.Reducer, a, b []float64) float64 {
	return reduce.Sum(floats.Dot(a, b))
}
