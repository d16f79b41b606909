package logging

import "sync"

// Metrics accumulates named counters alongside the event stream, for
// components that want a cheap local tally (e.g. packets forwarded,
// resync advisories raised) without standing up a separate telemetry
// pipeline.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// TelemetryAdd increments the named counter by delta.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]uint64)
	}
	m.counters[key] += delta
}

// TelemetryStore overwrites the named counter.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]uint64)
	}
	m.counters[key] = value
}

// Snapshot returns a copy of every counter's current value.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
