package client

import (
	"time"

	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/request"
)

// EventKind tags a client event
type EventKind string

const (
	// EventNodeOnline fires when a node sends a heartbeat after being unknown or offline
	EventNodeOnline EventKind = "node_online"
	// EventFleetRejected fires when an engine command targets a node outside the fleet
	EventFleetRejected EventKind = "fleet_rejected"
	// EventTransactionResolved fires when a request resolves
	EventTransactionResolved EventKind = "transaction_resolved"
	// EventTransactionRejected fires when a request is rejected
	EventTransactionRejected EventKind = "transaction_rejected"
	// EventUnmatchedPayload fires for payloads of untracked instances
	EventUnmatchedPayload EventKind = "unmatched_payload"
)

// Event is an out-of-band notice from the client. Only the fields relevant to
// the kind are set.
type Event struct {
	Kind    EventKind
	Node    string
	Time    time.Time
	Action  message.Action
	Result  *request.Result
	Payload *message.Payload
	Err     error
}
