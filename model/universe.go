package model

import (
	"sort"
	"sync"
	"time"
)

// NodeStatus is the universe view of one node
type NodeStatus struct {
	ID        string
	FirstSeen time.Time
	LastSeen  time.Time
	Online    bool
}

// Universe records every node seen on the network
type Universe struct {
	mu     sync.RWMutex
	nodes  map[string]*NodeStatus
	window time.Duration
	now    func() time.Time
}

// NewUniverse creates a universe. A node is online when seen within window.
func NewUniverse(window time.Duration) *Universe {
	return &Universe{
		nodes:  make(map[string]*NodeStatus),
		window: window,
		now:    time.Now,
	}
}

// SetClock replaces the time source
func (u *Universe) SetClock(now func() time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.now = now
}

// Seen records activity of node at t. It reports whether the node was new.
func (u *Universe) Seen(node string, t time.Time) bool {
	if t.IsZero() {
		t = u.clock()
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if s, ok := u.nodes[node]; ok {
		if t.After(s.LastSeen) {
			s.LastSeen = t
		}
		return false
	}
	u.nodes[node] = &NodeStatus{ID: node, FirstSeen: t, LastSeen: t}
	return true
}

// Known reports whether node was ever seen
func (u *Universe) Known(node string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.nodes[node]
	return ok
}

// Online reports whether node was seen within the window
func (u *Universe) Online(node string) bool {
	now := u.clock()
	u.mu.RLock()
	defer u.mu.RUnlock()
	s, ok := u.nodes[node]
	return ok && now.Sub(s.LastSeen) <= u.window
}

// Nodes returns all known nodes sorted by id
func (u *Universe) Nodes() []NodeStatus {
	now := u.clock()
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]NodeStatus, 0, len(u.nodes))
	for _, s := range u.nodes {
		status := *s
		status.Online = now.Sub(s.LastSeen) <= u.window
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (u *Universe) clock() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.now()
}

// Fleet is the set of nodes this client controls
type Fleet struct {
	mu    sync.RWMutex
	nodes map[string]struct{}
}

// NewFleet creates a fleet of nodes
func NewFleet(nodes ...string) *Fleet {
	f := &Fleet{nodes: make(map[string]struct{})}
	for _, n := range nodes {
		f.nodes[n] = struct{}{}
	}
	return f
}

// Add puts node in the fleet
func (f *Fleet) Add(node string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[node] = struct{}{}
}

// Remove takes node out of the fleet
func (f *Fleet) Remove(node string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, node)
}

// Contains reports fleet membership
func (f *Fleet) Contains(node string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.nodes[node]
	return ok
}

// List returns the fleet sorted
func (f *Fleet) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.nodes))
	for n := range f.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
