//go:build !linux && !windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-pool/api"
)

// ErrNotSupported is returned where thread pinning is unavailable.
var ErrNotSupported = fmt.Errorf("affinity: %w", api.ErrNotSupported)

// setAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func setAffinityPlatform(cpuID int) error {
	return ErrNotSupported
}

// AllowedCPUs returns every logical CPU.
func AllowedCPUs() []int {
	return defaultCPUs()
}
