package health

import (
	"sort"
	"sync"
	"time"
)

// Probe computes the current status of a component on demand
type Probe func() Status

// Monitor tracks component statuses. Components either push updates or
// register a probe that is evaluated on every read. It is safe for concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	probes   map[string]Probe
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		probes:   make(map[string]Probe),
	}
}

// Update stores the pushed status of name
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[name] = status
}

// UpdateHealthy marks name healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateDegraded marks name degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// UpdateUnhealthy marks name unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Register adds a probe for name. A probe wins over a pushed status of the same name.
func (m *Monitor) Register(name string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = probe
}

// Remove forgets name
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	delete(m.probes, name)
}

// Get returns the status of name
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	probe, probed := m.probes[name]
	status, ok := m.statuses[name]
	m.mu.RUnlock()

	if probed {
		return named(name, probe()), true
	}
	return status, ok
}

// All returns every status sorted by component name
func (m *Monitor) All() []Status {
	m.mu.RLock()
	names := make(map[string]struct{}, len(m.statuses)+len(m.probes))
	for n := range m.statuses {
		names[n] = struct{}{}
	}
	for n := range m.probes {
		names[n] = struct{}{}
	}
	m.mu.RUnlock()

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	out := make([]Status, 0, len(sorted))
	for _, n := range sorted {
		if s, ok := m.Get(n); ok {
			out = append(out, s)
		}
	}
	return out
}

// Aggregate returns the combined status of every component
func (m *Monitor) Aggregate(system string) Status {
	return Aggregate(system, m.All())
}

func named(name string, s Status) Status {
	s.Component = name
	return s
}
