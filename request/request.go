package request

import (
	"sync"

	"github.com/AiXpand/tsclient-sub000/message"
)

// Callback receives the final result of a request
type Callback func(Result)

// Result is the outcome of a settled request
type Result struct {
	RequestID     string
	Kind          Kind
	Action        message.Action
	Notifications []*message.Notification
	Targets       []Target
	Message       string
}

// Request correlates one outbound command with the notifications of its watched paths.
//
// A request is not safe for concurrent use. The owner of the Manager serializes
// event delivery.
type Request struct {
	id     string
	kind   Kind
	action message.Action
	policy policy

	targets       map[string]*Target
	order         []string
	notifications []*message.Notification

	onSuccess Callback
	onFail    Callback
	closed    bool
	settle    sync.Once

	manager *Manager
}

func newRequest(id string, kind Kind, action message.Action, onSuccess, onFail Callback) *Request {
	return &Request{
		id:        id,
		kind:      kind,
		action:    action,
		policy:    policies[kind],
		targets:   make(map[string]*Target),
		onSuccess: onSuccess,
		onFail:    onFail,
	}
}

// ID returns the generated request id
func (r *Request) ID() string { return r.id }

// Kind returns the completion policy
func (r *Request) Kind() Kind { return r.kind }

// Action returns the command action
func (r *Request) Action() message.Action { return r.action }

// Closed reports whether the request reached a terminal state
func (r *Request) Closed() bool { return r.closed }

// Watch registers path as a pending target. Watching an already watched path is a no-op.
func (r *Request) Watch(path message.Path) {
	if r.closed {
		return
	}
	key := path.Key()
	if _, ok := r.targets[key]; ok {
		return
	}
	r.targets[key] = &Target{Path: path, Status: StatusPending}
	r.order = append(r.order, key)
	if r.manager != nil {
		r.manager.index(key, r)
	}
}

// Unwatch drops path from the targets and re-evaluates completion.
// A request left without targets resolves.
func (r *Request) Unwatch(path message.Path) {
	key := path.Key()
	if _, ok := r.targets[key]; !ok {
		return
	}
	delete(r.targets, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.manager != nil {
		r.manager.unindex(key, r)
	}
	if r.closed {
		return
	}
	r.finish(r.decide())
}

// ListWatches returns the watched paths in watch order
func (r *Request) ListWatches() []message.Path {
	paths := make([]message.Path, 0, len(r.order))
	for _, key := range r.order {
		paths = append(paths, r.targets[key].Path)
	}
	return paths
}

// Targets returns a snapshot of the targets in watch order
func (r *Request) Targets() []Target {
	out := make([]Target, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.targets[key])
	}
	return out
}

// Notifications returns every notification processed so far
func (r *Request) Notifications() []*message.Notification {
	out := make([]*message.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// IsComplete reports whether no target is pending
func (r *Request) IsComplete() bool {
	for _, t := range r.targets {
		if t.Status == StatusPending {
			return false
		}
	}
	return true
}

// CanResolve reports whether every target succeeded. True for zero targets.
func (r *Request) CanResolve() bool {
	for _, t := range r.targets {
		if t.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// Process applies a notification. Notifications for unwatched paths and
// notifications reaching a closed request are ignored. It reports whether
// the notification was consumed.
func (r *Request) Process(n *message.Notification) bool {
	if r.closed || n == nil {
		return false
	}
	target, ok := r.targets[n.Path.Key()]
	if !ok {
		return false
	}
	r.notifications = append(r.notifications, n)
	r.finish(r.policy(r, target, n))
	return true
}

// Close marks the request terminal and removes it from its manager without
// invoking any callback.
func (r *Request) Close() {
	if r.closed {
		return
	}
	r.closed = true
	if r.manager != nil {
		r.manager.remove(r)
	}
}

func (r *Request) decide() outcome {
	if !r.IsComplete() {
		return outcomeOpen
	}
	if r.CanResolve() {
		return outcomeResolve
	}
	return outcomeReject
}

func (r *Request) finish(o outcome) {
	if o == outcomeOpen {
		return
	}
	r.Close()
	r.settle.Do(func() {
		result := r.result()
		if r.manager != nil {
			r.manager.settled(r, o)
		}
		cb := r.onSuccess
		if o == outcomeReject {
			cb = r.onFail
			result.Message = r.failureReason()
		}
		if cb != nil {
			cb(result)
		}
	})
}

func (r *Request) result() Result {
	return Result{
		RequestID:     r.id,
		Kind:          r.kind,
		Action:        r.action,
		Notifications: r.Notifications(),
		Targets:       r.Targets(),
	}
}

func (r *Request) failureReason() string {
	for _, key := range r.order {
		if t := r.targets[key]; t.Status == StatusFailure {
			return t.Reason
		}
	}
	return ""
}
