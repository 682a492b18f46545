package buffer

import (
	"log/slog"

	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/metric"
)

// Option configures a MemoryStore.
type Option func(*storeOptions)

type storeOptions struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[message.Event]
	metricsReg     *metric.MetricsRegistry
	metricsPrefix  string
	logger         *slog.Logger
}

// WithOverflowPolicy sets the overflow behavior of every per-node queue.
// Defaults to DropOldest.
func WithOverflowPolicy(policy OverflowPolicy) Option {
	return func(o *storeOptions) {
		o.overflowPolicy = policy
	}
}

// WithMetrics exports queue statistics as Prometheus metrics. Ignored when
// registry is nil or prefix is empty.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(o *storeOptions) {
		if registry != nil && prefix != "" {
			o.metricsReg = registry
			o.metricsPrefix = prefix
		}
	}
}

// WithDropCallback sets a function called with every event lost to overflow.
func WithDropCallback(callback DropCallback[message.Event]) Option {
	return func(o *storeOptions) {
		o.dropCallback = callback
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(options ...Option) *storeOptions {
	opts := &storeOptions{
		overflowPolicy: DropOldest,
		logger:         slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
