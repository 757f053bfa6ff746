// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.

package affinity

import (
	"fmt"
	"runtime"
)

// SetAffinity pins the current OS thread to a given logical CPU.
// The caller must hold runtime.LockOSThread for the pin to stick to the goroutine.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: invalid cpu %d", cpuID)
	}
	return setAffinityPlatform(cpuID)
}

// PinWorker locks the calling goroutine to its OS thread and pins that thread
// to a CPU chosen round-robin, by worker index, from the CPUs the process may use.
func PinWorker(workerID int) error {
	cpus := AllowedCPUs()
	if len(cpus) == 0 {
		return fmt.Errorf("affinity: no usable cpu for worker %d", workerID)
	}
	runtime.LockOSThread()
	return SetAffinity(cpus[workerID%len(cpus)])
}

// defaultCPUs lists 0..NumCPU-1.
func defaultCPUs() []int {
	n := runtime.NumCPU()
	cpus := make([]int, n)
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}
