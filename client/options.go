package client

import (
	"log/slog"
	"time"

	"github.com/AiXpand/tsclient-sub000/config"
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/AiXpand/tsclient-sub000/pkg/buffer"
	"github.com/AiXpand/tsclient-sub000/schema"
)

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records client and request metrics on the registry's core set.
// The payload worker pool registers its own metrics on the registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) {
		if registry != nil {
			c.metricsRegistry = registry
			c.metrics = registry.CoreMetrics()
		}
	}
}

// WithBuffer sets the store holding events of nodes that have not sent a
// heartbeat yet. Without a store no event is delayed.
func WithBuffer(store buffer.Store) Option {
	return func(c *Client) {
		c.buffer = store
	}
}

// WithWarmUp toggles warm-up buffering when a buffer is configured
func WithWarmUp(enabled bool) Option {
	return func(c *Client) {
		c.warmUp = enabled
	}
}

// WithSchemaRegistry replaces the built-in schema registry
func WithSchemaRegistry(reg *schema.Registry) Option {
	return func(c *Client) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithFleet sets the nodes this client may restart or stop
func WithFleet(nodes ...string) Option {
	return func(c *Client) {
		c.fleetNodes = append(c.fleetNodes, nodes...)
	}
}

// WithOnlineWindow sets how long a node counts as online after a heartbeat
func WithOnlineWindow(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.onlineWindow = d
		}
	}
}

// WithPayloadWorkers sizes the payload delivery pool
func WithPayloadWorkers(workers, queueSize int) Option {
	return func(c *Client) {
		c.workers = workers
		c.queueSize = queueSize
	}
}

// WithEventBuffer sets the capacity of the Events channel
func WithEventBuffer(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.eventBuffer = n
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithConfig applies the client section of the configuration
func WithConfig(cfg config.ClientConfig) Option {
	return func(c *Client) {
		WithFleet(cfg.Fleet...)(c)
		WithWarmUp(cfg.WarmUp)(c)
		WithOnlineWindow(cfg.OnlineWindow)(c)
		WithPayloadWorkers(cfg.PayloadWorkers, cfg.PayloadQueue)(c)
		if cfg.EventBuffer > 0 {
			c.eventBuffer = cfg.EventBuffer
		}
	}
}
