// Package natsclient wraps the NATS Go client with the connection handling the
// edge client needs.
//
// # Circuit Breaker
//
// Connection failures are counted in rounds. Once a round reaches the threshold
// (default 5) the circuit opens and Connect fails fast with errors.ErrCircuitOpen
// until the current backoff has elapsed. Every further round doubles the backoff
// up to the configured maximum. A successful connect or reconnect resets it.
//
// # Usage
//
//	client, err := natsclient.NewClient("nats://a:4222,nats://b:4222",
//		natsclient.WithLogger(natsclient.NewSlogLogger(logger)),
//		natsclient.WithMetrics(registry.CoreMetrics()),
//		natsclient.WithMaxReconnects(-1),
//	)
//	if err != nil {
//		return err
//	}
//	if err := retry.Do(ctx, retry.Connect(), func() error { return client.Connect(ctx) }); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	err = client.Subscribe(ctx, "aixp.heartbeats", func(ctx context.Context, subject string, data []byte) {
//		// decode and dispatch
//	})
//
// Handlers run on the NATS delivery goroutine of their subscription; each
// message gets a context bounded by the handler timeout.
//
// # Testing
//
// NewTestClient starts a NATS server container with testcontainers-go and
// returns a connected Client that is cleaned up with the test.
package natsclient
