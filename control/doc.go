// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration loading, runtime metrics and debug introspection for
// hioload-pool.
//
// Provides:
//   - Pool configuration from YAML files and HIOLOAD_POOL_* environment variables
//   - A thread-safe metrics registry fed from pool statistics
//   - Named debug probes for state export
package control
