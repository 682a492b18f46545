// Package health reports the health of the client and its collaborators.
//
// A Status has one of three states: healthy, degraded or unhealthy. Aggregate
// folds sub-statuses into one: any unhealthy component makes the whole
// unhealthy, otherwise any degraded component makes it degraded.
//
// Monitor collects statuses by component name. Components either push an
// update when their state changes (the broker connection does this from its
// health callback) or register a Probe evaluated on every read (the client
// does this for its pending requests and fleet):
//
//	mon := health.NewMonitor()
//	mon.Register("client", c.Health)
//	mon.UpdateHealthy("nats", "connected")
//	server := metric.NewServer(port, path, registry, func() error {
//		return mon.Aggregate("edgectl").Err()
//	})
//
// Messages built from errors go through Sanitize so broker URLs, addresses and
// credentials do not leak onto the health endpoint.
package health
