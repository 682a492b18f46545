package message

import (
	"time"
)

// EventType identifies the kind of an inbound event
type EventType string

const (
	EventHeartbeat    EventType = "HEARTBEAT"
	EventNotification EventType = "NOTIFICATION"
	EventPayload      EventType = "PAYLOAD"
)

// Envelope carries the sender metadata common to every inbound event
type Envelope struct {
	Sender    string
	Time      time.Time
	Initiator string
	SessionID string
}

// Event is implemented by Heartbeat, Notification and Payload
type Event interface {
	Type() EventType
	Node() string
	Meta() Envelope
}

// Notification is a status report for a pipeline or plugin instance
type Notification struct {
	Envelope
	Path             Path
	NotificationType NotificationType
	Code             Code
	Message          string
	Info             map[string]any
	Module           string
}

// Type implements Event
func (n *Notification) Type() EventType { return EventNotification }

// Node implements Event. The path node wins over the sender.
func (n *Notification) Node() string {
	if n.Path.Node != "" {
		return n.Path.Node
	}
	return n.Sender
}

// Meta implements Event
func (n *Notification) Meta() Envelope { return n.Envelope }

// IsException reports an EXCEPTION type notification
func (n *Notification) IsException() bool {
	return n.NotificationType == NotificationException
}

// Payload is plugin output delivered to the consumer verbatim
type Payload struct {
	Envelope
	Path Path
	Data map[string]any
}

// Type implements Event
func (p *Payload) Type() EventType { return EventPayload }

// Node implements Event
func (p *Payload) Node() string {
	if p.Path.Node != "" {
		return p.Path.Node
	}
	return p.Sender
}

// Meta implements Event
func (p *Payload) Meta() Envelope { return p.Envelope }

// Heartbeat is the periodic state snapshot of a node
type Heartbeat struct {
	Envelope
	DCTs          []DCTStats
	ActivePlugins []ActivePlugin
}

// Type implements Event
func (h *Heartbeat) Type() EventType { return EventHeartbeat }

// Node implements Event
func (h *Heartbeat) Node() string { return h.Sender }

// Meta implements Event
func (h *Heartbeat) Meta() Envelope { return h.Envelope }

// DCTStats is the heartbeat view of one data capture thread
type DCTStats struct {
	ID             string
	Type           string
	Initiator      string
	Config         map[string]any
	LastUpdateTime time.Time
	Rate           Rate
	Status         Status
}

// Rate holds acquisition rates of a data capture thread
type Rate struct {
	Actual     float64
	Configured float64
	Target     float64
}

// Status holds the health flags of a data capture thread
type Status struct {
	Flow       bool
	Collecting bool
	Idle       float64
	IdleAlert  bool
	Fails      int
	Log        []string
}

// Tag is one entry of an ordered tag map
type Tag struct {
	Key   string
	Value string
}

// Timers holds plugin instance lifecycle timestamps
type Timers struct {
	Init        time.Time
	Exec        time.Time
	Config      time.Time
	LastPayload time.Time
	FirstError  time.Time
	LastError   time.Time
}

// ActivePlugin is the heartbeat view of one running plugin instance
type ActivePlugin struct {
	StreamID            string
	Signature           string
	InstanceID          string
	Frequency           float64
	Timers              Timers
	OutsideWorkingHours bool
	Config              map[string]any
	Tags                []Tag
}

// Path returns the instance path of the plugin on node
func (a ActivePlugin) Path(node string) Path {
	return InstancePath(node, a.StreamID, a.Signature, a.InstanceID)
}
