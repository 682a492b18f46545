package model

import (
	"sync"
	"time"

	"github.com/AiXpand/tsclient-sub000/changeset"
	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/schema"
)

// Reserved local config keys. They compile to ID_TAGS, WORKING_HOURS,
// FORCED_PAUSE and LINKED_INSTANCES.
const (
	KeyTags            = "idTags"
	KeyWorkingHours    = "workingHours"
	KeyForcedPause     = "forcedPause"
	KeyLinkedInstances = "linkedInstances"
)

// NotificationListener receives broadcast notifications of an instance
type NotificationListener func(*PluginInstance, *message.Notification)

// PayloadListener receives payloads of an instance
type PayloadListener func(*PluginInstance, *message.Payload)

// PluginInstance is one running plugin inside a pipeline
type PluginInstance struct {
	node       string
	pipelineID string
	signature  string
	id         string

	config      *changeset.Object
	tags        *Tags
	schedule    *Schedule
	forcePaused bool
	linkable    bool

	Frequency           float64
	Timers              message.Timers
	OutsideWorkingHours bool

	collector *PluginInstance
	linked    []*PluginInstance

	mu                    sync.RWMutex
	notificationListeners []NotificationListener
	payloadListeners      []PayloadListener
}

// InstanceOption configures a PluginInstance
type InstanceOption func(*PluginInstance)

// WithLinkable marks the signature as supporting links
func WithLinkable(linkable bool) InstanceOption {
	return func(p *PluginInstance) { p.linkable = linkable }
}

// WithTags sets the initial ordered tags
func WithTags(tags ...message.Tag) InstanceOption {
	return func(p *PluginInstance) { p.tags = NewTags(tags...) }
}

// WithFrequency sets the reported frequency
func WithFrequency(f float64) InstanceOption {
	return func(p *PluginInstance) { p.Frequency = f }
}

// WithTimers sets the reported timers
func WithTimers(t message.Timers) InstanceOption {
	return func(p *PluginInstance) { p.Timers = t }
}

// NewPluginInstance creates a detached instance. config is the local form and is change-tracked.
func NewPluginInstance(signature, id string, config map[string]any, opts ...InstanceOption) *PluginInstance {
	p := &PluginInstance{
		signature: signature,
		id:        id,
		config:    changeset.NewObject(config),
		tags:      NewTags(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.loadReserved()
	return p
}

// loadReserved derives schedule and pause flag from the config
func (p *PluginInstance) loadReserved() {
	values := p.config.Value()
	if v, ok := values[KeyForcedPause].(bool); ok {
		p.forcePaused = v
	}
	if v, ok := values[KeyWorkingHours]; ok && v != nil {
		if s, err := ScheduleFromWire(v); err == nil && len(s.Intervals) > 0 {
			p.schedule = s
		}
	}
	if v, ok := values[KeyTags].(map[string]any); ok && p.tags.Len() == 0 {
		for k, val := range v {
			if s, ok := val.(string); ok {
				p.tags.Set(k, s)
			}
		}
	}
}

// Signature returns the plugin type
func (p *PluginInstance) Signature() string { return p.signature }

// ID returns the instance id
func (p *PluginInstance) ID() string { return p.id }

// Node returns the node of the owning pipeline, empty while detached
func (p *PluginInstance) Node() string { return p.node }

// PipelineID returns the owning pipeline id, empty while detached
func (p *PluginInstance) PipelineID() string { return p.pipelineID }

// Path returns the instance path
func (p *PluginInstance) Path() message.Path {
	return message.InstancePath(p.node, p.pipelineID, p.signature, p.id)
}

// Config returns the change-tracked configuration
func (p *PluginInstance) Config() *changeset.Object { return p.config }

// Tags returns the ordered tags
func (p *PluginInstance) Tags() *Tags { return p.tags }

// SetTag adds or replaces a tag and records it in the config
func (p *PluginInstance) SetTag(key, value string) {
	p.tags.Set(key, value)
	p.config.Set(KeyTags, p.tags.Map())
}

// RemoveTag deletes a tag and records it in the config
func (p *PluginInstance) RemoveTag(key string) {
	if p.tags.Remove(key) {
		p.config.Set(KeyTags, p.tags.Map())
	}
}

// Schedule returns the working-hours schedule, nil when always on
func (p *PluginInstance) Schedule() *Schedule { return p.schedule }

// SetSchedule sets working hours and records them in the config
func (p *PluginInstance) SetSchedule(s *Schedule) {
	if s == nil {
		p.ClearSchedule()
		return
	}
	p.schedule = s
	p.config.Set(KeyWorkingHours, s.Wire())
}

// ClearSchedule removes working hours
func (p *PluginInstance) ClearSchedule() {
	p.schedule = nil
	p.config.Set(KeyWorkingHours, []any{})
}

// Working reports whether t falls inside the working hours
func (p *PluginInstance) Working(t time.Time) bool {
	return p.schedule.Contains(t)
}

// ForcePaused reports the forced pause flag
func (p *PluginInstance) ForcePaused() bool { return p.forcePaused }

// SetForcePaused sets the forced pause flag and records it in the config
func (p *PluginInstance) SetForcePaused(paused bool) {
	p.forcePaused = paused
	p.config.Set(KeyForcedPause, paused)
}

// Linkable reports whether the instance supports links
func (p *PluginInstance) Linkable() bool { return p.linkable }

// Collector returns the collector this instance is linked to, or nil
func (p *PluginInstance) Collector() *PluginInstance { return p.collector }

// Linked returns the instances linked to this collector
func (p *PluginInstance) Linked() []*PluginInstance {
	out := make([]*PluginInstance, len(p.linked))
	copy(out, p.linked)
	return out
}

// IsCollector reports whether other instances are linked to this one
func (p *PluginInstance) IsCollector() bool { return len(p.linked) > 0 }

// IsLinked reports whether this instance is linked to a collector
func (p *PluginInstance) IsLinked() bool { return p.collector != nil }

// Link makes p the collector of other. Both must share the signature and support links.
// It returns the pipeline ids whose linking state changed.
func (p *PluginInstance) Link(other *PluginInstance) ([]string, error) {
	if other == nil || other == p || p.signature != other.signature || !p.linkable || !other.linkable {
		return nil, errors.WrapInvalid(errors.ErrNotLinkable, "PluginInstance", "Link", "check linkability")
	}
	if p.collector != nil || other.collector != nil || other.IsCollector() {
		return nil, errors.WrapInvalid(errors.ErrAlreadyLinked, "PluginInstance", "Link", "check link state")
	}
	p.linked = append(p.linked, other)
	other.collector = p
	p.syncLinks()
	other.syncLinks()
	return affected(p, other), nil
}

// Unlink detaches other from p
func (p *PluginInstance) Unlink(other *PluginInstance) ([]string, error) {
	if other == nil || other.collector != p {
		return nil, errors.WrapInvalid(errors.ErrInstanceNotFound, "PluginInstance", "Unlink", "find linked instance")
	}
	p.detach(other)
	return affected(p, other), nil
}

func (p *PluginInstance) detach(other *PluginInstance) {
	for i, l := range p.linked {
		if l == other {
			p.linked = append(p.linked[:i], p.linked[i+1:]...)
			break
		}
	}
	other.collector = nil
	p.syncLinks()
	other.syncLinks()
}

// unlinkAll repairs the graph before p goes away and returns the instances touched.
// A collector hands its role to linked[0]; a linked instance just leaves its collector.
func (p *PluginInstance) unlinkAll() []*PluginInstance {
	touched := []*PluginInstance{p}
	if c := p.collector; c != nil {
		c.detach(p)
		touched = append(touched, c)
	}
	if len(p.linked) > 0 {
		heir := p.linked[0]
		rest := append([]*PluginInstance(nil), p.linked[1:]...)
		p.linked = nil
		heir.collector = nil
		heir.linked = rest
		for _, l := range rest {
			l.collector = heir
			l.syncLinks()
		}
		heir.syncLinks()
		touched = append(touched, heir)
		touched = append(touched, rest...)
		p.syncLinks()
	}
	return touched
}

// syncLinks records the linked list of a collector in its config
func (p *PluginInstance) syncLinks() {
	list := make([]any, 0, len(p.linked))
	for _, l := range p.linked {
		list = append(list, []any{l.pipelineID, l.id})
	}
	if len(list) == 0 && !p.config.Has(KeyLinkedInstances) {
		return
	}
	p.config.Set(KeyLinkedInstances, list)
}

// Delta returns the instance update carrying only recorded config changes, or nil
func (p *PluginInstance) Delta(reg *schema.Registry) *message.InstanceUpdate {
	if !p.config.HasChanges() {
		return nil
	}
	return &message.InstanceUpdate{
		Name:       p.pipelineID,
		Signature:  p.signature,
		InstanceID: p.id,
		Config:     reg.Resolve(p.signature).Compile(p.config.Changeset(), true),
	}
}

// OnNotification registers a listener for broadcast notifications
func (p *PluginInstance) OnNotification(l NotificationListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notificationListeners = append(p.notificationListeners, l)
}

// OnPayload registers a listener for payloads
func (p *PluginInstance) OnPayload(l PayloadListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloadListeners = append(p.payloadListeners, l)
}

// Notify calls the notification listeners
func (p *PluginInstance) Notify(n *message.Notification) {
	p.mu.RLock()
	listeners := append([]NotificationListener(nil), p.notificationListeners...)
	p.mu.RUnlock()
	for _, l := range listeners {
		l(p, n)
	}
}

// Deliver calls the payload listeners
func (p *PluginInstance) Deliver(pl *message.Payload) {
	p.mu.RLock()
	listeners := append([]PayloadListener(nil), p.payloadListeners...)
	p.mu.RUnlock()
	for _, l := range listeners {
		l(p, pl)
	}
}

// refresh merges a heartbeat snapshot into p so existing references stay valid
func (p *PluginInstance) refresh(snapshot *PluginInstance) {
	p.config.Refresh(snapshot.config.Value())
	if snapshot.tags.Len() > 0 && !p.config.Pending(KeyTags) {
		p.tags.Replace(snapshot.tags)
	}
	p.Frequency = snapshot.Frequency
	p.Timers = snapshot.Timers
	p.OutsideWorkingHours = snapshot.OutsideWorkingHours
	if snapshot.linkable {
		p.linkable = true
	}
	p.loadReserved()
}

func affected(instances ...*PluginInstance) []string {
	seen := make(map[string]bool)
	var out []string
	for _, inst := range instances {
		if inst == nil || seen[inst.pipelineID] {
			continue
		}
		seen[inst.pipelineID] = true
		out = append(out, inst.pipelineID)
	}
	return out
}
