package request

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/google/uuid"
)

// Manager is the registry of pending requests. It indexes every request by id
// and by each watched path. Several requests may watch the same path; they
// queue in creation order and only the oldest one owns the path.
type Manager struct {
	mu     sync.Mutex
	byID   map[string]*Request
	byPath map[string][]*Request

	newID   func() string
	logger  *slog.Logger
	metrics *metric.Metrics
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records request lifecycle metrics
func WithMetrics(metrics *metric.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithIDGenerator replaces the uuid request id generator
func WithIDGenerator(gen func() string) ManagerOption {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewManager creates an empty registry
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		byID:   make(map[string]*Request),
		byPath: make(map[string][]*Request),
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new request for action. The request kind follows the action.
func (m *Manager) Create(action message.Action, onSuccess, onFail Callback) (*Request, error) {
	kind, ok := KindFor(action)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("action %q is not correlated", action),
			"Manager", "Create", "resolve request kind")
	}

	r := newRequest(m.newID(), kind, action, onSuccess, onFail)
	r.manager = m

	m.mu.Lock()
	m.byID[r.id] = r
	pending := len(m.byID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordRequestCreated(kind.String())
		m.metrics.SetPendingRequests(pending)
	}
	m.logger.Debug("request created", "request_id", r.id, "action", string(action), "kind", kind.String())
	return r, nil
}

// Get returns the request with id
func (m *Manager) Get(id string) *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// Find returns the request owning path, or nil
func (m *Manager) Find(path message.Path) *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if queue := m.byPath[path.Key()]; len(queue) > 0 {
		return queue[0]
	}
	return nil
}

// Process routes a notification to the request owning its path.
// It reports whether a request consumed it.
func (m *Manager) Process(n *message.Notification) bool {
	if n == nil {
		return false
	}
	r := m.Find(n.Path)
	if r == nil {
		return false
	}
	return r.Process(n)
}

// Unwatch removes path from every request watching it
func (m *Manager) Unwatch(path message.Path) {
	m.mu.Lock()
	queue := append([]*Request(nil), m.byPath[path.Key()]...)
	m.mu.Unlock()

	for _, r := range queue {
		r.Unwatch(path)
	}
}

// Destroy closes the request owning path and removes it from every path it watches.
// No callback fires. It returns the destroyed request, or nil.
func (m *Manager) Destroy(path message.Path) *Request {
	r := m.Find(path)
	if r == nil {
		return nil
	}
	r.Close()
	m.logger.Debug("request destroyed", "request_id", r.id, "path", path.Key())
	return r
}

// DestroyWhere destroys every request watching a path accepted by match
func (m *Manager) DestroyWhere(match func(message.Path) bool) []*Request {
	m.mu.Lock()
	var victims []*Request
	for _, r := range m.byID {
		for _, key := range r.order {
			if match(r.targets[key].Path) {
				victims = append(victims, r)
				break
			}
		}
	}
	m.mu.Unlock()

	for _, r := range victims {
		r.Close()
	}
	return victims
}

// Len returns the number of open requests
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Manager) index(key string, r *Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPath[key] = append(m.byPath[key], r)
}

func (m *Manager) unindex(key string, r *Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unindexLocked(key, r)
}

func (m *Manager) unindexLocked(key string, r *Request) {
	queue := m.byPath[key]
	for i, q := range queue {
		if q == r {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(m.byPath, key)
		return
	}
	m.byPath[key] = queue
}

func (m *Manager) remove(r *Request) {
	m.mu.Lock()
	for _, key := range r.order {
		m.unindexLocked(key, r)
	}
	delete(m.byID, r.id)
	pending := len(m.byID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetPendingRequests(pending)
	}
}

func (m *Manager) settled(r *Request, o outcome) {
	label := "resolved"
	if o == outcomeReject {
		label = "rejected"
	}
	if m.metrics != nil {
		m.metrics.RecordRequestSettled(r.kind.String(), label)
	}
	m.logger.Debug("request settled",
		"request_id", r.id,
		"action", string(r.action),
		"outcome", label,
		"notifications", len(r.notifications))
}
