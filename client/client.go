package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/health"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/AiXpand/tsclient-sub000/model"
	"github.com/AiXpand/tsclient-sub000/pkg/buffer"
	"github.com/AiXpand/tsclient-sub000/pkg/worker"
	"github.com/AiXpand/tsclient-sub000/request"
	"github.com/AiXpand/tsclient-sub000/schema"
	"github.com/AiXpand/tsclient-sub000/transport"
)

// Transport delivers decoded inbound events and sends commands.
// *transport.NATS satisfies it.
type Transport interface {
	Start(ctx context.Context, sink transport.Sink) error
	Send(ctx context.Context, node string, cmd *message.Command) error
}

type delivery struct {
	instance *model.PluginInstance
	payload  *message.Payload
}

// Client tracks the pipelines it owns on remote nodes and correlates the
// commands it sends with the notifications that answer them.
//
// Inbound events are handled one at a time. Model state is guarded by a
// single mutex shared with the public API; request callbacks run under it.
// Instance listeners run outside it: broadcast notifications on the event
// goroutine, payloads on the worker pool.
type Client struct {
	name      string
	sessionID string
	transport Transport
	registry  *schema.Registry
	buffer    buffer.Store
	warmUp    bool

	logger          *slog.Logger
	metrics         *metric.Metrics
	metricsRegistry *metric.MetricsRegistry
	now             func() time.Time

	workers      int
	queueSize    int
	eventBuffer  int
	onlineWindow time.Duration
	fleetNodes   []string

	// eventMu serializes inbound event handling, buffer drains included
	eventMu sync.Mutex

	mu        sync.Mutex
	manager   *request.Manager
	nodes     map[string]*model.Node
	warmed    map[string]bool
	futures   map[string]*request.Future
	universe  *model.Universe
	fleet     *model.Fleet
	events    chan Event
	pool      *worker.Pool[delivery]
	started   bool
	stopped   bool
	startTime time.Time
}

// New creates a client acting as name. name is stamped as initiator on every
// command and selects which heartbeat DCTs belong to this client.
func New(name string, tr Transport, opts ...Option) *Client {
	c := &Client{
		name:         name,
		sessionID:    uuid.NewString(),
		transport:    tr,
		registry:     schema.DefaultRegistry(),
		warmUp:       true,
		logger:       slog.Default(),
		now:          time.Now,
		workers:      4,
		queueSize:    256,
		eventBuffer:  128,
		onlineWindow: 30 * time.Second,
		nodes:        make(map[string]*model.Node),
		warmed:       make(map[string]bool),
		futures:      make(map[string]*request.Future),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client", "initiator", name)

	c.universe = model.NewUniverse(c.onlineWindow)
	c.universe.SetClock(c.now)
	c.fleet = model.NewFleet(c.fleetNodes...)
	c.events = make(chan Event, c.eventBuffer)

	managerOpts := []request.ManagerOption{request.WithLogger(c.logger)}
	if c.metrics != nil {
		managerOpts = append(managerOpts, request.WithMetrics(c.metrics))
	}
	c.manager = request.NewManager(managerOpts...)

	poolOpts := []worker.Option[delivery]{
		worker.WithKeyFunc(func(d delivery) string { return d.payload.Path.Key() }),
		worker.WithLogger[delivery](c.logger),
		worker.WithErrorHandler(func(d delivery, err error) {
			c.logger.Error("payload listener failed",
				"node", d.payload.Path.Node,
				"pipeline", d.payload.Path.Pipeline,
				"signature", d.payload.Path.Signature,
				"instance", d.payload.Path.Instance,
				"error", err)
		}),
	}
	if c.metricsRegistry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[delivery](c.metricsRegistry, "payloads"))
	}
	c.pool = worker.NewPool(c.workers, c.queueSize, deliver, poolOpts...)
	return c
}

func deliver(_ context.Context, d delivery) error {
	d.instance.Deliver(d.payload)
	return nil
}

// Name returns the initiator identity
func (c *Client) Name() string { return c.name }

// SessionID returns the session id stamped on commands
func (c *Client) SessionID() string { return c.sessionID }

// Start launches payload workers and subscribes through the transport
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.stopped:
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Client", "Start", "check state")
	case c.started:
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Client", "Start", "check state")
	}
	c.started = true
	c.startTime = c.now()
	c.mu.Unlock()

	if err := c.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Client", "Start", "start payload workers")
	}
	if err := c.transport.Start(ctx, c.handle); err != nil {
		_ = c.pool.Stop(time.Second)
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		return errors.Wrap(err, "Client", "Start", "start transport")
	}

	c.logger.Info("client started",
		"session_id", c.sessionID,
		"fleet", c.fleet.List(),
		"warm_up", c.warmUp && c.buffer != nil)
	return nil
}

// Stop aborts every pending future, closes the Events channel and drains the
// payload workers within timeout.
func (c *Client) Stop(timeout time.Duration) error {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	c.mu.Lock()
	switch {
	case !c.started:
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotStarted, "Client", "Stop", "check state")
	case c.stopped:
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Client", "Stop", "check state")
	}
	c.stopped = true

	c.manager.DestroyWhere(func(message.Path) bool { return true })
	aborted := len(c.futures)
	stopErr := errors.WrapFatal(errors.ErrAlreadyStopped, "Client", "Stop", "wait for request")
	for id, f := range c.futures {
		f.Abort(stopErr)
		delete(c.futures, id)
	}
	close(c.events)
	c.mu.Unlock()

	c.logger.Info("client stopping", "aborted_requests", aborted)
	if err := c.pool.Stop(timeout); err != nil {
		return errors.Wrap(err, "Client", "Stop", "drain payload workers")
	}
	return nil
}

// Events returns the channel of out-of-band client events. It is closed by
// Stop. Events are dropped when the channel is full.
func (c *Client) Events() <-chan Event {
	return c.events
}

// emitLocked sends ev without blocking. c.mu must be held.
func (c *Client) emitLocked(ev Event) {
	if c.stopped {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = c.now()
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping event",
			"kind", string(ev.Kind),
			"node", ev.Node)
	}
}

// Fleet returns the controlled nodes sorted
func (c *Client) Fleet() []string { return c.fleet.List() }

// AddToFleet allows engine commands for node
func (c *Client) AddToFleet(node string) { c.fleet.Add(node) }

// RemoveFromFleet forbids engine commands for node
func (c *Client) RemoveFromFleet(node string) { c.fleet.Remove(node) }

// InFleet reports fleet membership
func (c *Client) InFleet(node string) bool { return c.fleet.Contains(node) }

// Universe returns every node seen on the network
func (c *Client) Universe() []model.NodeStatus { return c.universe.Nodes() }

// Online reports whether node sent a heartbeat within the online window
func (c *Client) Online(node string) bool { return c.universe.Online(node) }

// Pipelines returns the tracked pipelines of node in creation order
func (c *Client) Pipelines(node string) []*model.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.nodes[node]; n != nil {
		return n.Pipelines()
	}
	return nil
}

// Pipeline returns a tracked pipeline, or nil
func (c *Client) Pipeline(node, pipeline string) *model.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.nodes[node]; n != nil {
		return n.Pipeline(pipeline)
	}
	return nil
}

// DCTs returns the tracked data capture threads of node
func (c *Client) DCTs(node string) []*model.DataCaptureThread {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.nodes[node]; n != nil {
		return n.DCTs()
	}
	return nil
}

// Instance returns the tracked instance at path, or nil
func (c *Client) Instance(path message.Path) *model.PluginInstance {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.nodes[path.Node]; n != nil {
		return n.Instance(path)
	}
	return nil
}

// PendingRequests returns the number of open requests
func (c *Client) PendingRequests() int {
	return c.manager.Len()
}

// Do runs fn under the model lock. Use it to mutate instance configs, tags or
// schedules obtained from the client while events keep arriving.
func (c *Client) Do(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

// Health reports the lifecycle, the correlator backlog, fleet reachability
// and payload delivery.
func (c *Client) Health() health.Status {
	c.mu.Lock()
	started, stopped, startTime := c.started, c.stopped, c.startTime
	c.mu.Unlock()

	var lifecycle health.Status
	switch {
	case stopped:
		lifecycle = health.NewUnhealthy("lifecycle", "stopped")
	case !started:
		lifecycle = health.NewDegraded("lifecycle", "not started")
	default:
		lifecycle = health.NewHealthy("lifecycle", "running").
			WithDetails(&health.Details{Uptime: c.now().Sub(startTime)})
	}

	pending := c.manager.Len()
	correlator := health.NewHealthy("correlator", fmt.Sprintf("%d pending requests", pending)).
		WithDetails(&health.Details{Pending: pending})

	var offline []string
	for _, node := range c.fleet.List() {
		if !c.universe.Online(node) {
			offline = append(offline, node)
		}
	}
	fleet := health.NewHealthy("fleet", "all fleet nodes online")
	if len(offline) > 0 {
		fleet = health.NewDegraded("fleet", fmt.Sprintf("offline: %v", offline))
	}

	stats := c.pool.Stats()
	payloads := health.NewHealthy("payloads", "delivering").
		WithDetails(&health.Details{Pending: stats.QueueDepth, Dropped: stats.Dropped})
	if stats.Dropped > 0 {
		payloads = health.NewDegraded("payloads", fmt.Sprintf("%d payloads dropped", stats.Dropped)).
			WithDetails(&health.Details{Pending: stats.QueueDepth, Dropped: stats.Dropped})
	}

	return health.Aggregate("client", []health.Status{lifecycle, correlator, fleet, payloads})
}

// nodeLocked returns the model of node, creating it. c.mu must be held.
func (c *Client) nodeLocked(id string) *model.Node {
	n, ok := c.nodes[id]
	if !ok {
		n = model.NewNode(id)
		c.nodes[id] = n
	}
	return n
}

// pipelineLocked finds a tracked pipeline. c.mu must be held.
func (c *Client) pipelineLocked(node, pipeline string) (*model.Pipeline, error) {
	if n := c.nodes[node]; n != nil {
		if p := n.Pipeline(pipeline); p != nil {
			return p, nil
		}
	}
	return nil, errors.WrapInvalid(fmt.Errorf("%w: %s/%s", errors.ErrPipelineNotFound, node, pipeline),
		"Client", "pipeline", "find pipeline")
}

// instanceLocked finds a tracked instance. c.mu must be held.
func (c *Client) instanceLocked(path message.Path) (*model.PluginInstance, error) {
	if n := c.nodes[path.Node]; n != nil {
		if inst := n.Instance(path); inst != nil {
			return inst, nil
		}
	}
	return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, path),
		"Client", "instance", "find instance")
}
