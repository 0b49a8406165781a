package cmd

import (
	"errors"
	"testing"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofvm/InputParameters"
)

func parseInput(t *testing.T, input string) *InputParameters.SolverParameters {
	ip := &InputParameters.SolverParameters{}
	require.NoError(t, ip.Parse([]byte(input)))
	return ip
}

func TestRunSolve(t *testing.T) {
	{ // Uniform boundary values and no source give a uniform field
		ip := parseInput(t, `
Nx: 10
Ny: 8
BCs:
  West: 1.
  East: 1.
  South: 1.
  North: 1.
Tolerance: 1.e-12
NumPartitions: 3
CommTimeout: 10
`)
		res, err := RunSolve(ip, nil)
		require.NoError(t, err)
		require.Len(t, res.Psi, 80)
		assert.True(t, res.Performance.Converged)
		assert.Equal(t, "PCG", res.Performance.SolverName)
		assert.Equal(t, []int{27, 27, 26}, res.Stats.CellsPerRank)
		for cell, v := range res.Psi {
			assert.InDelta(t, 1, v, 1e-9, "cell %d", cell)
		}
		assert.Nil(t, res.Instructions)
		res.Log()
	}
	{ // Decomposed and serial runs agree
		input := `
Nx: 12
Ny: 12
SourceType: Gaussian
SourceValue: 10.
BCs:
  West: 1.
Solver: smoothSolver
Tolerance: 1.e-10
MaxIter: 5000
CommTimeout: 10
`
		serial, err := RunSolve(parseInput(t, input), nil)
		require.NoError(t, err)
		ip := parseInput(t, input)
		ip.NumPartitions = 4
		ip.FloatTransfer = false
		decomposed, err := RunSolve(ip, nil)
		require.NoError(t, err)
		assert.True(t, serial.Performance.Converged)
		assert.True(t, decomposed.Performance.Converged)
		assert.InDeltaSlice(t, serial.Psi, decomposed.Psi, 1e-7)
	}
}

func TestRunSolve_Errors(t *testing.T) {
	{
		ip := parseInput(t, "Nx: 4\nNy: 4\nSolver: GAMG\n")
		_, err := RunSolve(ip, nil)
		assert.Error(t, err)
	}
	{
		ip := parseInput(t, "Nx: 4\nNy: 4\nDecomposition: scotch\nNumPartitions: 2\n")
		_, err := RunSolve(ip, nil)
		assert.Error(t, err)
	}
	{ // The dense solver cannot see across ranks
		ip := parseInput(t, "Nx: 4\nNy: 4\nSolver: direct\nNumPartitions: 2\n")
		_, err := RunSolve(ip, nil)
		assert.Error(t, err)
	}
}

func TestRunSolve_Counter(t *testing.T) {
	counting := func(f func() error) (uint64, bool, error) {
		return 42, true, f()
	}
	unavailable := func(f func() error) (uint64, bool, error) {
		return 0, false, errors.New("no counters")
	}
	ip := parseInput(t, "Nx: 6\nNy: 6\nBCs:\n  North: 2.\nNumPartitions: 2\nCommTimeout: 10\n")
	{
		res, err := RunSolve(ip, counting)
		require.NoError(t, err)
		assert.Equal(t, []uint64{42, 42}, res.Instructions)
		assert.True(t, res.Performance.Converged)
	}
	{ // Ranks still solve without counters
		res, err := RunSolve(ip, unavailable)
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 0}, res.Instructions)
		assert.True(t, res.Performance.Converged)
	}
}

func TestSetLogLevel(t *testing.T) {
	defer jww.SetStdoutThreshold(jww.LevelError)
	assert.NoError(t, setLogLevel("DEBUG"))
	assert.Equal(t, jww.LevelDebug, jww.StdoutThreshold())
	assert.Error(t, setLogLevel("verbose"))
}
