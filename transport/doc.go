// Package transport connects the client to the broker.
//
// NATS subscribes to the configured heartbeat, notification and payload
// subjects, decodes every message with the codec package and passes the typed
// event to a sink. Undecodable messages are logged, counted and dropped.
//
// Outbound commands go to the subject built from the commands template, one
// per node. Each node has its own token bucket limiter (golang.org/x/time/rate),
// so a burst of updates for one node does not delay commands for the others.
package transport
