package buffer

import (
	"context"
	"sync"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

// MemoryStore keeps a bounded circular queue per node.
type MemoryStore struct {
	mu       sync.Mutex
	queues   map[string]*ring[message.Event]
	capacity int
	total    int
	closed   bool

	opts    *storeOptions
	stats   *Statistics
	metrics *storeMetrics
}

// NewMemoryStore creates a store holding at most capacity events per node.
// Returns an error if metrics registration fails when metrics are requested.
func NewMemoryStore(capacity int, options ...Option) (*MemoryStore, error) {
	opts := applyOptions(options...)
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *storeMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newStoreMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "MemoryStore", "NewMemoryStore", "metrics registration")
		}
	}

	return &MemoryStore{
		queues:   make(map[string]*ring[message.Event]),
		capacity: capacity,
		opts:     opts,
		stats:    NewStatistics(),
		metrics:  metrics,
	}, nil
}

// Store implements Store.
func (s *MemoryStore) Store(_ context.Context, ev message.Event) error {
	if ev == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "MemoryStore", "Store", "nil event")
	}
	node := ev.Node()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "MemoryStore", "Store", "store closed")
	}

	q, ok := s.queues[node]
	if !ok {
		q = newRing[message.Event](s.capacity)
		s.queues[node] = q
	}
	before := q.len()
	lost, dropped := q.push(ev, s.opts.overflowPolicy)
	s.total += q.len() - before

	s.stats.recordStore()
	if s.metrics != nil {
		s.metrics.stored.Inc()
	}
	if dropped {
		s.stats.recordDrop()
	}
	s.observe(dropped)
	s.mu.Unlock()

	if dropped {
		s.opts.logger.Warn("buffer full, event dropped",
			"node", node,
			"policy", s.opts.overflowPolicy.String(),
			"capacity", s.capacity)
		if s.opts.dropCallback != nil {
			s.opts.dropCallback(lost)
		}
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, node string) (message.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[node]
	if !ok {
		return nil, nil
	}
	ev, ok := q.pop()
	if !ok {
		return nil, nil
	}
	s.total--
	if q.len() == 0 {
		delete(s.queues, node)
	}

	s.stats.recordGet()
	s.observe(false)
	return ev, nil
}

// NodeHasMessages implements Store.
func (s *MemoryStore) NodeHasMessages(_ context.Context, node string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[node]
	return ok && q.len() > 0, nil
}

// Len returns the number of events held for node.
func (s *MemoryStore) Len(node string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[node]; ok {
		return q.len()
	}
	return 0
}

// Stats returns store statistics.
func (s *MemoryStore) Stats() *Statistics {
	return s.stats
}

// Close discards everything held and rejects further writes.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queues = make(map[string]*ring[message.Event])
	s.total = 0
	s.observe(false)
	return nil
}

// observe must be called with s.mu held.
func (s *MemoryStore) observe(dropped bool) {
	s.stats.updateQueued(int64(s.total))
	if s.metrics == nil {
		return
	}
	if dropped {
		s.metrics.drops.Inc()
	}
	s.metrics.update(s.total, len(s.queues))
}
