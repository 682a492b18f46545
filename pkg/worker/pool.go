// Package worker provides a generic worker pool. Work items that share a key
// are always handled by the same worker, in submission order.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AiXpand/tsclient-sub000/metric"
)

// Pool processes work items of type T on a fixed set of workers. Each worker
// owns a lane (a bounded channel); items are routed to lanes by key.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error
	keyFunc   func(T) string
	onError   func(T, error)
	logger    *slog.Logger

	lanes   []chan T
	next    uint64
	metrics *poolMetrics
	wg      *sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted int64
	processed int64
	failed    int64
	panicked  int64
	dropped   int64

	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
}

type poolMetrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option configures a Pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry registers pool metrics under prefix
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// WithKeyFunc routes items with the same key to the same worker. Without it
// items are spread round-robin.
func WithKeyFunc[T any](fn func(T) string) Option[T] {
	return func(p *Pool[T]) {
		p.keyFunc = fn
	}
}

// WithErrorHandler is called with every item whose processing failed or panicked.
func WithErrorHandler[T any](fn func(T, error)) Option[T] {
	return func(p *Pool[T]) {
		p.onError = fn
	}
}

// WithLogger sets the logger
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a pool with workers lanes of queueSize items each.
// It panics when processor is nil.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	pool := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		logger:    slog.Default(),
		lanes:     make([]chan T, workers),
	}
	for i := range pool.lanes {
		pool.lanes[i] = make(chan T, queueSize)
	}

	for _, opt := range opts {
		opt(pool)
	}

	if pool.metricsRegistry != nil && pool.metricsPrefix != "" {
		pool.initializeMetrics()
	}

	return pool
}

func (p *Pool[T]) initializeMetrics() {
	labels := prometheus.Labels{"pool": p.metricsPrefix}
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tsclient", Subsystem: "worker", Name: "queue_depth",
			ConstLabels: labels,
			Help:        "Items waiting across all lanes",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tsclient", Subsystem: "worker", Name: "submitted_total",
			ConstLabels: labels,
			Help:        "Total work items submitted",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tsclient", Subsystem: "worker", Name: "processed_total",
			ConstLabels: labels,
			Help:        "Total work items processed",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tsclient", Subsystem: "worker", Name: "failed_total",
			ConstLabels: labels,
			Help:        "Total work items that failed or panicked",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tsclient", Subsystem: "worker", Name: "dropped_total",
			ConstLabels: labels,
			Help:        "Total work items dropped due to a full lane",
		}),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tsclient", Subsystem: "worker", Name: "processing_duration_seconds",
			ConstLabels: labels,
			Help:        "Time spent processing work items",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"status"}),
	}

	service := "worker_" + p.metricsPrefix
	errs := []error{
		p.metricsRegistry.RegisterGauge(service, "queue_depth", m.queueDepth),
		p.metricsRegistry.RegisterCounter(service, "submitted_total", m.submitted),
		p.metricsRegistry.RegisterCounter(service, "processed_total", m.processed),
		p.metricsRegistry.RegisterCounter(service, "failed_total", m.failed),
		p.metricsRegistry.RegisterCounter(service, "dropped_total", m.dropped),
		p.metricsRegistry.RegisterHistogramVec(service, "processing_duration_seconds", m.processingTime),
	}
	for _, err := range errs {
		if err != nil {
			p.logger.Warn("worker pool metrics registration failed",
				"pool", p.metricsPrefix,
				"error", err)
		}
	}
	p.metrics = m
}

func (p *Pool[T]) lane(work T) int {
	if p.keyFunc == nil {
		return int(atomic.AddUint64(&p.next, 1) % uint64(p.workers))
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(p.keyFunc(work)))
	return int(h.Sum32() % uint32(p.workers))
}

// Submit queues work without blocking. Returns ErrQueueFull when the target
// lane is full.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.lanes[p.lane(work)] <- work:
		atomic.AddInt64(&p.submitted, 1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(p.depth()))
		}
		return nil
	default:
		atomic.AddInt64(&p.dropped, 1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches one goroutine per lane
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.wg = &sync.WaitGroup{}
	for i := range p.lanes {
		p.wg.Add(1)
		go p.worker(ctx, p.lanes[i])
	}

	p.started = true
	return nil
}

// Stop closes all lanes and waits up to timeout for queued work to drain
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}
	p.stopped = true
	for _, lane := range p.lanes {
		close(lane)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: p.depth(),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
		Panicked:   atomic.LoadInt64(&p.panicked),
		Dropped:    atomic.LoadInt64(&p.dropped),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Panicked   int64 `json:"panicked"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) depth() int {
	n := 0
	for _, lane := range p.lanes {
		n += len(lane)
	}
	return n
}

func (p *Pool[T]) worker(ctx context.Context, lane <-chan T) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-lane:
			if !ok {
				return
			}
			p.run(ctx, work)
		}
	}
}

// run processes one item. A panicking processor counts as a failure and does
// not take the worker down.
func (p *Pool[T]) run(ctx context.Context, work T) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&p.panicked, 1)
				err = fmt.Errorf("processor panic: %v", r)
			}
		}()
		return p.processor(ctx, work)
	}()
	duration := time.Since(start)

	atomic.AddInt64(&p.processed, 1)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		if p.onError != nil {
			p.onError(work, err)
		} else {
			p.logger.Debug("work item failed", "error", err)
		}
	}

	if p.metrics != nil {
		p.metrics.processed.Inc()
		status := "success"
		if err != nil {
			p.metrics.failed.Inc()
			status = "error"
		}
		p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
		p.metrics.queueDepth.Set(float64(p.depth()))
	}
}
