// Package worker runs work items on a fixed number of goroutines.
//
// Every worker owns a bounded lane. With WithKeyFunc, items that share a key
// land on the same lane and are therefore processed one at a time in the order
// they were submitted; the client uses the plugin instance path as key so a
// consumer sees the payloads of one instance in arrival order.
//
//	pool := worker.NewPool(4, 256, deliver,
//		worker.WithKeyFunc(func(d delivery) string { return d.key }),
//		worker.WithMetricsRegistry[delivery](registry, "payloads"),
//	)
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Submit never blocks. It returns ErrQueueFull when the target lane is full
// and ErrPoolNotStarted / ErrPoolStopped outside the running window. A
// processor that panics is counted as failed and reported through the error
// handler; the worker keeps running.
package worker
