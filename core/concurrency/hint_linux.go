//go:build linux

// File: core/concurrency/hint_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hardware concurrency hint from the scheduler affinity mask.

package concurrency

import "golang.org/x/sys/unix"

// HardwareConcurrency returns the number of CPUs the process may run on,
// or 0 when the affinity mask cannot be read.
func HardwareConcurrency() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0
	}
	return set.Count()
}
