//go:build !linux
// +build !linux

package cmd

import (
	"errors"
)

func hardwareCounter() InstructionCounter {
	return func(f func() error) (uint64, bool, error) {
		return 0, false, errors.New("hardware counters need linux")
	}
}
