// Package buffer provides per-node message stores used to hold inbound events
// while the client warms up.
//
// # Overview
//
// Notifications and payloads can arrive from a node before the first heartbeat
// of that node has been ingested. Delivering them early would route them against
// an empty entity model, so the client parks them in a Store and drains the
// node's queue in FIFO order right after the heartbeat.
//
// # Implementations
//
// MemoryStore keeps one bounded circular queue per node. When a queue is full the
// OverflowPolicy decides whether the oldest or the newest event is lost:
//
//	store, err := buffer.NewMemoryStore(1024,
//		buffer.WithOverflowPolicy(buffer.DropOldest),
//		buffer.WithMetrics(registry, "warmup"),
//	)
//
// RedisStore keeps one Redis list per node (RPUSH / LPOP), storing events in
// their broker wire form:
//
//	rdb, err := buffer.DialRedis(ctx, "localhost:6379", "", 0)
//	store := buffer.NewRedisStore(rdb, buffer.WithRedisPrefix("edge:"))
//
// # Thread Safety
//
// Both implementations are safe for concurrent use.
package buffer
