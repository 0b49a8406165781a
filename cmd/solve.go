/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gofvm/InputParameters"
	"github.com/notargets/gofvm/decompose"
	"github.com/notargets/gofvm/ldu"
	"github.com/notargets/gofvm/model_problems/Poisson"
	"github.com/notargets/gofvm/parallel"
	"github.com/notargets/gofvm/solvers"
)

type ModelSolve struct {
	ICFile        string
	Profile       string
	Perf          bool
	NumPartitions int // Overrides the input file when non zero
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a Poisson model problem on the unit square",
	Long: `
Assembles the five point Laplacian on the unit square described by the input
file, decomposes it and solves it with the selected solver,

gofvm solve -I input.yaml -n 4`,
	Run: func(cmd *cobra.Command, args []string) {
		ms := &ModelSolve{}
		ms.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		ms.Profile, _ = cmd.Flags().GetString("profile")
		ms.Perf, _ = cmd.Flags().GetBool("perf")
		ms.NumPartitions, _ = cmd.Flags().GetInt("numPartitions")
		ip := processSolveInput(ms)
		if viper.GetString("logLevel") == "debug" || viper.GetString("logLevel") == "trace" {
			ip.Print()
		}
		if ms.Profile != "" {
			defer startProfile(ms.Profile).Stop()
		}
		var counter InstructionCounter
		if ms.Perf {
			counter = hardwareCounter()
		}
		res, err := RunSolve(ip, counter)
		if err != nil {
			jww.ERROR.Println(err)
			os.Exit(1)
		}
		res.Log()
		if !res.Performance.Converged {
			jww.WARN.Printf("%s did not converge in %d iterations", res.Performance.SolverName, res.Performance.NIterations)
		}
	},
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Nx, Ny\n\t- Solver, Tolerance")
	SolveCmd.Flags().IntP("numPartitions", "n", 0, "number of ranks, overrides NumPartitions of the input file")
	SolveCmd.Flags().String("profile", "", "write a pprof profile to the current directory: cpu or mem")
	SolveCmd.Flags().Bool("perf", false, "count CPU instructions of every rank with hardware counters")
}

func processSolveInput(ms *ModelSolve) (ip *InputParameters.SolverParameters) {
	var (
		err  error
		data []byte
	)
	if len(ms.ICFile) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", InputParameters.ExampleFile)
		os.Exit(1)
	}
	if data, err = ioutil.ReadFile(ms.ICFile); err != nil {
		jww.ERROR.Println(err)
		os.Exit(1)
	}
	ip = &InputParameters.SolverParameters{}
	if err = ip.Parse(data); err != nil {
		jww.ERROR.Printf("%s: %v", ms.ICFile, err)
		os.Exit(1)
	}
	if ms.NumPartitions > 0 {
		ip.NumPartitions = ms.NumPartitions
	}
	return
}

func startProfile(kind string) interface{ Stop() } {
	switch kind {
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		jww.ERROR.Printf("unknown profile %q, valid profiles are cpu and mem", kind)
		os.Exit(1)
	}
	return nil
}

// InstructionCounter runs f and returns the instructions retired by the
// calling thread while it ran. ran is false if counting could not start, in
// which case f was not called.
type InstructionCounter func(f func() error) (count uint64, ran bool, err error)

type SolveResult struct {
	Psi          []float64
	Performance  solvers.Performance
	Stats        decompose.Stats
	Instructions []uint64 // Per rank, when counted
	Elapsed      time.Duration
}

func (res *SolveResult) Log() {
	jww.INFO.Println(res.Performance.String())
	if len(res.Psi) != 0 {
		jww.INFO.Printf("Solution range [%g, %g], solve time %v",
			floats.Min(res.Psi), floats.Max(res.Psi), res.Elapsed)
	}
	for rank, n := range res.Instructions {
		jww.INFO.Printf("  rank %d: %d instructions", rank, n)
	}
}

// RunSolve assembles, decomposes and solves the problem of the input on
// NumPartitions ranks.
func RunSolve(ip *InputParameters.SolverParameters, counter InstructionCounter) (res *SolveResult, err error) {
	var (
		np  = ip.NumPartitions
		f   Poisson.Field
		sds []*decompose.Subdomain
	)
	if f, err = ip.SourceField(); err != nil {
		return
	}
	sys := Poisson.NewPoisson2D(ip.Nx, ip.Ny, f, ip.BoundaryField())
	cellToRank, err := decompose.CellToRank(ip.Decomposition, sys.Matrix.Addr(), np)
	if err != nil {
		return
	}
	if sds, err = decompose.Decompose(sys, cellToRank, np); err != nil {
		return
	}
	res = &SolveResult{Stats: decompose.Analyse(sds)}
	res.Stats.Log()

	var (
		fields = make([][]float64, np)
		perfs  = make([]solvers.Performance, np)
		errs   = make([]error, np)
		opts   = []parallel.Option{}
		start  = time.Now()
	)
	if counter != nil {
		res.Instructions = make([]uint64, np)
	}
	if ip.CommTimeout > 0 {
		opts = append(opts, parallel.WithTimeout(time.Duration(ip.CommTimeout*float64(time.Second))))
	}
	parallel.NewComm(np, opts...).Run(func(p *parallel.Proc) {
		var (
			rank  = p.Rank()
			sd    = sds[rank]
			local = sd.Attach(p, decompose.WithFloatTransfer(ip.FloatTransfer))
		)
		errs[rank] = solveRank(p, sd, local, ip, counter, res, fields, perfs)
	})
	res.Elapsed = time.Since(start)
	if err = multierr.Combine(errs...); err != nil {
		return nil, err
	}
	res.Psi = decompose.Reconstruct(sds, fields)
	res.Performance = perfs[0]
	return
}

func solveRank(p *parallel.Proc, sd *decompose.Subdomain, local *ldu.System, ip *InputParameters.SolverParameters,
	counter InstructionCounter, res *SolveResult, fields [][]float64, perfs []solvers.Performance) error {
	rank := p.Rank()
	s, err := solvers.New(ip.Solver, "psi", local, p, ip.Controls())
	if err != nil {
		return fmt.Errorf("rank %d: %w", rank, err)
	}
	psi := make([]float64, sd.NCells())
	solve := func() error {
		perfs[rank] = s.Solve(psi, local.Source)
		return nil
	}
	if counter == nil {
		_ = solve()
	} else {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		count, ran, err := counter(solve)
		if !ran {
			jww.WARN.Printf("rank %d: hardware counters unavailable: %v", rank, err)
			_ = solve()
		}
		res.Instructions[rank] = count
	}
	fields[rank] = psi
	jww.DEBUG.Printf("rank %d: %s", rank, perfs[rank].String())
	return nil
}
