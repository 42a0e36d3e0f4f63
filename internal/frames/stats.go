package frames

import (
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/warden/config"
)

// MaintenanceStats collects trim-pass metrics. Per-device latencies and
// eviction counts feed DDSketches so quantiles stay cheap to keep at any
// volume.
type MaintenanceStats struct {
	mu sync.Mutex

	latency *ddsketch.DDSketch
	evicted *ddsketch.DDSketch

	passes        int64
	devices       int64
	framesEvicted int64
	failures      int64
	lastPass      time.Time
}

// StatsSnapshot is a point-in-time copy of the collected metrics.
type StatsSnapshot struct {
	Passes        int64
	Devices       int64
	FramesEvicted int64
	Failures      int64
	LastPass      time.Time

	// Per-device trim latency quantiles, in milliseconds. Zero when no
	// device has been trimmed yet.
	LatencyP50 float64
	LatencyP95 float64
	LatencyP99 float64
}

// NewMaintenanceStats creates a stats collector with the default sketch
// accuracy.
func NewMaintenanceStats() *MaintenanceStats {
	s := &MaintenanceStats{}
	if sk, err := ddsketch.NewDefaultDDSketch(config.DefaultSketchAccuracy); err == nil {
		s.latency = sk
	}
	if sk, err := ddsketch.NewDefaultDDSketch(config.DefaultSketchAccuracy); err == nil {
		s.evicted = sk
	}
	return s
}

// RecordDevice records one device's trim outcome.
func (s *MaintenanceStats) RecordDevice(latency time.Duration, evicted int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices++
	s.framesEvicted += int64(evicted)
	if failed {
		s.failures++
	}
	if s.latency != nil {
		// Sub-millisecond trims still count; clamp to a small positive
		// value since DDSketch rejects zero.
		ms := float64(latency.Microseconds()) / 1000.0
		if ms <= 0 {
			ms = 0.001
		}
		_ = s.latency.Add(ms)
	}
	if s.evicted != nil && evicted > 0 {
		_ = s.evicted.Add(float64(evicted))
	}
}

// RecordPass records the completion of a full trim pass.
func (s *MaintenanceStats) RecordPass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes++
	s.lastPass = time.Now()
}

// Snapshot returns a copy of the current metrics.
func (s *MaintenanceStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Passes:        s.passes,
		Devices:       s.devices,
		FramesEvicted: s.framesEvicted,
		Failures:      s.failures,
		LastPass:      s.lastPass,
	}
	if s.latency != nil && s.latency.GetCount() > 0 {
		snap.LatencyP50 = quantile(s.latency, 0.5)
		snap.LatencyP95 = quantile(s.latency, 0.95)
		snap.LatencyP99 = quantile(s.latency, 0.99)
	}
	return snap
}

// Format returns a human-readable summary.
func (s *MaintenanceStats) Format() string {
	snap := s.Snapshot()
	return fmt.Sprintf(
		"trim: %d passes, %d devices, %d frames evicted, %d failures, latency p50=%.2fms p95=%.2fms p99=%.2fms",
		snap.Passes, snap.Devices, snap.FramesEvicted, snap.Failures,
		snap.LatencyP50, snap.LatencyP95, snap.LatencyP99,
	)
}

func quantile(sk *ddsketch.DDSketch, q float64) float64 {
	v, err := sk.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return v
}
