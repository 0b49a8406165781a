package InputParameters

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/gofvm/model_problems/Poisson"
	"github.com/notargets/gofvm/solvers"
)

// Parameters obtained from the YAML input file
type SolverParameters struct {
	Title          string             `yaml:"Title"`
	Nx             int                `yaml:"Nx"`
	Ny             int                `yaml:"Ny"`
	SourceType     string             `yaml:"SourceType"` // None, Uniform, Gaussian or Sine
	SourceValue    float64            `yaml:"SourceValue"`
	BCs            map[string]float64 `yaml:"BCs"` // Dirichlet value by side: West, East, South, North
	Solver         string             `yaml:"Solver"`
	Preconditioner string             `yaml:"Preconditioner"`
	Smoother       string             `yaml:"Smoother"`
	NSweeps        int                `yaml:"NSweeps"`
	Tolerance      float64            `yaml:"Tolerance"`
	RelTol         float64            `yaml:"RelTol"`
	MaxIter        int                `yaml:"MaxIter"`
	MinIter        int                `yaml:"MinIter"`
	NumPartitions  int                `yaml:"NumPartitions"`
	Decomposition  string             `yaml:"Decomposition"`
	FloatTransfer  bool               `yaml:"FloatTransfer"`
	CommTimeout    float64            `yaml:"CommTimeout"` // Seconds, zero waits forever
	Debug          bool               `yaml:"Debug"`
}

var sides = []string{"West", "East", "South", "North"}

const ExampleFile = `
########################################
Title: "Unit square"
Nx: 64
Ny: 64
SourceType: Gaussian # None, Uniform, Gaussian or Sine
SourceValue: 10.
BCs:
  West: 1.
  East: 0.
Solver: PCG # smoothSolver, PCG, diagonal, direct
Preconditioner: DIC # none, diagonal, DIC, smoother
Smoother: symGaussSeidel
Tolerance: 1.e-8
RelTol: 0
MaxIter: 1000
NumPartitions: 4
Decomposition: simple # or metis
########################################
`

func (ip *SolverParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.setDefaults()
	return ip.check()
}

func (ip *SolverParameters) setDefaults() {
	if ip.Solver == "" {
		ip.Solver = "PCG"
	}
	if ip.SourceType == "" {
		ip.SourceType = "None"
	}
	if ip.NumPartitions == 0 {
		ip.NumPartitions = 1
	}
	if ip.Decomposition == "" {
		ip.Decomposition = "simple"
	}
}

func (ip *SolverParameters) check() error {
	if ip.Nx < 1 || ip.Ny < 1 {
		return fmt.Errorf("invalid grid Nx = %d, Ny = %d", ip.Nx, ip.Ny)
	}
	if ip.NumPartitions < 1 {
		return fmt.Errorf("invalid NumPartitions = %d", ip.NumPartitions)
	}
	for side := range ip.BCs {
		known := false
		for _, s := range sides {
			known = known || s == side
		}
		if !known {
			return fmt.Errorf("unknown boundary %q, valid boundaries are %v", side, sides)
		}
	}
	if _, err := ip.SourceField(); err != nil {
		return err
	}
	return nil
}

// Controls are the solver settings of the input.
func (ip *SolverParameters) Controls() solvers.Controls {
	return solvers.Controls{
		Tolerance:      ip.Tolerance,
		RelTol:         ip.RelTol,
		MaxIter:        ip.MaxIter,
		MinIter:        ip.MinIter,
		NSweeps:        ip.NSweeps,
		Smoother:       ip.Smoother,
		Preconditioner: ip.Preconditioner,
		Debug:          ip.Debug,
	}
}

// SourceField is the right hand side function of the input, nil for None.
func (ip *SolverParameters) SourceField() (f Poisson.Field, err error) {
	val := ip.SourceValue
	switch strings.ToLower(ip.SourceType) {
	case "none", "":
	case "uniform":
		f = func(x, y float64) float64 { return val }
	case "gaussian":
		f = func(x, y float64) float64 {
			return val * math.Exp(-50*((x-0.5)*(x-0.5)+(y-0.5)*(y-0.5)))
		}
	case "sine":
		f = func(x, y float64) float64 {
			return val * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
		}
	default:
		err = fmt.Errorf("unknown SourceType %q, valid types are None, Uniform, Gaussian, Sine", ip.SourceType)
	}
	return
}

// BoundaryField returns the Dirichlet values as a function over the ghost
// cell centres outside the unit square. Sides not listed are zero.
func (ip *SolverParameters) BoundaryField() Poisson.Field {
	if len(ip.BCs) == 0 {
		return nil
	}
	var (
		west, east   = ip.BCs["West"], ip.BCs["East"]
		south, north = ip.BCs["South"], ip.BCs["North"]
	)
	return func(x, y float64) float64 {
		switch {
		case x < 0:
			return west
		case x > 1:
			return east
		case y < 0:
			return south
		case y > 1:
			return north
		}
		return 0
	}
}

func (ip *SolverParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d]\t\t= Grid\n", ip.Nx, ip.Ny)
	fmt.Printf("[%s]\t\t= Source Type\n", ip.SourceType)
	fmt.Printf("%8.5f\t\t= Source Value\n", ip.SourceValue)
	fmt.Printf("[%s]\t\t\t= Solver\n", ip.Solver)
	fmt.Printf("[%s]\t\t\t= Preconditioner\n", ip.Preconditioner)
	fmt.Printf("[%s]\t\t= Smoother\n", ip.Smoother)
	fmt.Printf("%8.2e\t\t= Tolerance\n", ip.Tolerance)
	fmt.Printf("%8.2e\t\t= RelTol\n", ip.RelTol)
	fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", ip.MaxIter)
	fmt.Printf("[%d]\t\t\t\t= Partitions (%s)\n", ip.NumPartitions, ip.Decomposition)
	keys := make([]string, len(ip.BCs))
	i := 0
	for k := range ip.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, ip.BCs[key])
	}
}
