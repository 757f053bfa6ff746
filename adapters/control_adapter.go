// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-pool/api"
	"github.com/momentics/hioload-pool/control"
)

// ControlAdapter joins a metrics registry, debug probes and an optional
// stats source refreshed on every Stats call.
type ControlAdapter struct {
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	source  control.StatsSource
	prefix  string
}

// NewControlAdapter builds a control surface. src may be nil.
func NewControlAdapter(prefix string, src control.StatsSource) api.Control {
	adapter := &ControlAdapter{
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		source:  src,
		prefix:  prefix,
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) Stats() map[string]any {
	if c.source != nil {
		c.metrics.PublishStats(c.prefix, c.source)
	}
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
