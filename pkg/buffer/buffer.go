// Package buffer holds messages for remote nodes until the client is ready to
// deliver them. A Store keeps one FIFO queue per node. MemoryStore is backed by
// bounded circular queues, RedisStore by Redis lists.
package buffer

import (
	"context"

	"github.com/AiXpand/tsclient-sub000/message"
)

// Store is an at-least-once temporary store of inbound events keyed by node.
type Store interface {
	// Store appends the event to the queue of the node that sent it.
	Store(ctx context.Context, ev message.Event) error

	// Get pops the oldest event queued for node. It returns nil when the
	// queue is empty.
	Get(ctx context.Context, node string) (message.Event, error)

	// NodeHasMessages reports whether anything is queued for node.
	NodeHasMessages(ctx context.Context, node string) (bool, error)
}

// OverflowPolicy defines how a bounded queue behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the queue is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is called with every item dropped by the overflow policy.
type DropCallback[T any] func(item T)
