//go:build linux
// +build linux

package cmd

import (
	perf "github.com/hodgesds/perf-utils"
)

func hardwareCounter() InstructionCounter {
	return func(f func() error) (count uint64, ran bool, err error) {
		var pv *perf.ProfileValue
		pv, err = perf.CPUInstructions(func() error {
			ran = true
			return f()
		})
		if err != nil {
			return
		}
		count = pv.Value
		return
	}
}
