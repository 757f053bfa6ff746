//go:build !linux

// File: core/concurrency/hint_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "runtime"

// HardwareConcurrency returns the number of logical CPUs.
func HardwareConcurrency() int {
	return runtime.NumCPU()
}
