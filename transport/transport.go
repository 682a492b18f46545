package transport

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/AiXpand/tsclient-sub000/codec"
	"github.com/AiXpand/tsclient-sub000/config"
	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/AiXpand/tsclient-sub000/natsclient"
)

// Conn is the broker surface used by the transport. *natsclient.Client
// satisfies it.
type Conn interface {
	Subscribe(ctx context.Context, subject string, handler natsclient.Handler) error
	Publish(ctx context.Context, subject string, data []byte) error
}

// Sink receives every decoded inbound event
type Sink func(ctx context.Context, ev message.Event)

// NATS is the broker transport
type NATS struct {
	conn    Conn
	topics  config.TopicsConfig
	limit   rate.Limit
	burst   int
	logger  *slog.Logger
	metrics *metric.Metrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	started  bool
}

// Option configures the transport
type Option func(*NATS)

// WithRateLimit allows perSecond commands per node with the given burst. A
// zero rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *NATS) {
		if perSecond <= 0 {
			t.limit = rate.Inf
			return
		}
		t.limit = rate.Limit(perSecond)
		if burst < 1 {
			burst = 1
		}
		t.burst = burst
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *NATS) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics records decode errors and published commands
func WithMetrics(m *metric.Metrics) Option {
	return func(t *NATS) {
		t.metrics = m
	}
}

// New creates a transport over conn
func New(conn Conn, topics config.TopicsConfig, opts ...Option) *NATS {
	t := &NATS{
		conn:     conn,
		topics:   topics,
		limit:    rate.Inf,
		burst:    1,
		logger:   slog.Default(),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "transport")
	return t
}

// Start subscribes to the heartbeat, notification and payload subjects.
// Events are delivered to sink on the subscription goroutines.
func (t *NATS) Start(ctx context.Context, sink Sink) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Transport", "Start", "subscribe")
	}

	for _, subject := range t.subjects() {
		if err := t.conn.Subscribe(ctx, subject, t.handler(sink)); err != nil {
			return errors.Wrap(err, "Transport", "Start", "subscribe "+subject)
		}
		t.logger.Debug("subscribed", "subject", subject)
	}
	t.started = true
	return nil
}

// subjects returns the inbound subjects without duplicates; deployments may
// carry every event type on a single subject.
func (t *NATS) subjects() []string {
	seen := make(map[string]bool, 3)
	var out []string
	for _, s := range []string{t.topics.Heartbeats, t.topics.Notifications, t.topics.Payloads} {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (t *NATS) handler(sink Sink) natsclient.Handler {
	return func(ctx context.Context, subject string, data []byte) {
		ev, err := codec.Decode(data)
		if err != nil {
			if t.metrics != nil {
				t.metrics.RecordDecodeError(subject)
			}
			t.logger.Warn("dropping undecodable message",
				"subject", subject,
				"size", len(data),
				"error", err)
			return
		}
		sink(ctx, ev)
	}
}

func (t *NATS) limiter(node string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[node]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[node] = l
	}
	return l
}

// Send encodes cmd and publishes it to node's command subject. It waits for
// the node's rate limiter, bounded by ctx.
func (t *NATS) Send(ctx context.Context, node string, cmd *message.Command) error {
	data, err := codec.EncodeCommand(node, cmd)
	if err != nil {
		return err
	}

	if err := t.limiter(node).Wait(ctx); err != nil {
		return errors.WrapTransient(errors.ErrRateLimited, "Transport", "Send", err.Error())
	}

	subject := t.topics.CommandSubject(node)
	if err := t.conn.Publish(ctx, subject, data); err != nil {
		return errors.Wrap(err, "Transport", "Send", "publish "+string(cmd.Action))
	}

	if t.metrics != nil {
		t.metrics.RecordCommand(string(cmd.Action))
	}
	t.logger.Debug("command sent",
		"node", node,
		"action", string(cmd.Action),
		"subject", subject,
		"session_id", cmd.SessionID)
	return nil
}
