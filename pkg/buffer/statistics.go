package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks store activity across all nodes.
type Statistics struct {
	stored  int64
	fetched int64
	drops   int64

	mu        sync.RWMutex
	startTime time.Time
	queued    int64
	maxQueued int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) recordStore() { atomic.AddInt64(&s.stored, 1) }
func (s *Statistics) recordGet()   { atomic.AddInt64(&s.fetched, 1) }
func (s *Statistics) recordDrop()  { atomic.AddInt64(&s.drops, 1) }

func (s *Statistics) updateQueued(n int64) {
	s.mu.Lock()
	s.queued = n
	if n > s.maxQueued {
		s.maxQueued = n
	}
	s.mu.Unlock()
}

// Stored returns the number of events accepted by Store.
func (s *Statistics) Stored() int64 { return atomic.LoadInt64(&s.stored) }

// Fetched returns the number of events returned by Get.
func (s *Statistics) Fetched() int64 { return atomic.LoadInt64(&s.fetched) }

// Drops returns the number of events lost to overflow.
func (s *Statistics) Drops() int64 { return atomic.LoadInt64(&s.drops) }

// Queued returns the number of events currently held.
func (s *Statistics) Queued() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queued
}

// MaxQueued returns the high-water mark of held events.
func (s *Statistics) MaxQueued() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxQueued
}

// DropRate returns the fraction of stored events that were dropped (0.0 to 1.0).
func (s *Statistics) DropRate() float64 {
	stored := s.Stored()
	if stored == 0 {
		return 0.0
	}
	return float64(s.Drops()) / float64(stored)
}

// Uptime returns how long the store has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}
