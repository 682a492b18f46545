package client

import (
	"context"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/model"
)

// Notification routes
const (
	routeTransaction = "transaction"
	routeBroadcast   = "broadcast"
	routeIgnored     = "ignored"
)

// handle is the transport sink
func (c *Client) handle(ctx context.Context, ev message.Event) {
	if ev == nil {
		return
	}
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return
	}

	switch e := ev.(type) {
	case *message.Heartbeat:
		c.onHeartbeat(ctx, e)
	case *message.Notification, *message.Payload:
		if c.hold(ctx, ev) {
			return
		}
		c.dispatch(ev)
	default:
		c.logger.Debug("ignoring event", "type", string(ev.Type()), "node", ev.Node())
	}
}

// hold stores ev when its node is still warming up. It reports whether the
// event was buffered.
func (c *Client) hold(ctx context.Context, ev message.Event) bool {
	if c.buffer == nil || !c.warmUp {
		return false
	}
	node := ev.Node()
	c.mu.Lock()
	warmed := c.warmed[node]
	c.mu.Unlock()
	if warmed {
		return false
	}

	if err := c.buffer.Store(ctx, ev); err != nil {
		c.logger.Warn("warm-up buffer rejected event, delivering now",
			"node", node,
			"type", string(ev.Type()),
			"error", err)
		return false
	}
	if c.metrics != nil {
		c.metrics.RecordBuffered(string(ev.Type()))
	}
	return true
}

func (c *Client) dispatch(ev message.Event) {
	switch e := ev.(type) {
	case *message.Notification:
		c.onNotification(e)
	case *message.Payload:
		c.onPayload(e)
	}
}

func (c *Client) onHeartbeat(ctx context.Context, hb *message.Heartbeat) {
	node := hb.Node()
	if node == "" {
		c.logger.Warn("heartbeat without sender dropped")
		return
	}

	c.mu.Lock()
	first := !c.warmed[node]
	c.warmed[node] = true
	wasOnline := c.universe.Online(node)
	c.universe.Seen(node, hb.Time)

	res := c.nodeLocked(node).Reconcile(hb, c.name, c.registry, c.logger)
	if !wasOnline {
		c.emitLocked(Event{Kind: EventNodeOnline, Node: node, Time: hb.Time})
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordHeartbeat(node)
	}
	c.logger.Debug("heartbeat applied",
		"node", node,
		"new_pipelines", len(res.NewPipelines),
		"attached", res.Attached,
		"refreshed", res.Refreshed,
		"skipped", res.Skipped,
		"dropped", res.Dropped)

	if first && c.buffer != nil && c.warmUp {
		c.drain(ctx, node)
	}
}

// drain delivers the events buffered for node in arrival order
func (c *Client) drain(ctx context.Context, node string) {
	delivered := 0
	for {
		ev, err := c.buffer.Get(ctx, node)
		if err != nil {
			if errors.IsInvalid(err) {
				continue
			}
			c.logger.Warn("warm-up drain interrupted",
				"node", node,
				"delivered", delivered,
				"error", err)
			return
		}
		if ev == nil {
			break
		}
		c.dispatch(ev)
		delivered++
	}
	if delivered > 0 {
		c.logger.Info("warm-up buffer drained", "node", node, "delivered", delivered)
	}
}

// onNotification feeds the request owning the path. Without one, non-normal
// notifications are broadcast to the listeners of the addressed instances.
func (c *Client) onNotification(n *message.Notification) {
	c.mu.Lock()
	if c.manager.Process(n) {
		c.mu.Unlock()
		c.recordRoute(routeTransaction)
		return
	}
	if n.NotificationType.IsNormal() {
		c.mu.Unlock()
		c.recordRoute(routeIgnored)
		return
	}
	targets := c.broadcastTargetsLocked(n.Path)
	c.mu.Unlock()

	c.recordRoute(routeBroadcast)
	c.logger.Debug("notification broadcast",
		"node", n.Path.Node,
		"pipeline", n.Path.Pipeline,
		"signature", n.Path.Signature,
		"instance", n.Path.Instance,
		"type", string(n.NotificationType),
		"code", n.Code.String(),
		"listeners", len(targets))
	for _, inst := range targets {
		inst.Notify(n)
	}
}

// broadcastTargetsLocked returns the addressed instance, or every instance of
// the pipeline for a pipeline-level path. c.mu must be held.
func (c *Client) broadcastTargetsLocked(path message.Path) []*model.PluginInstance {
	n := c.nodes[path.Node]
	if n == nil {
		return nil
	}
	p := n.Pipeline(path.Pipeline)
	if p == nil {
		return nil
	}
	if path.IsPipelineLevel() {
		return p.Instances()
	}
	if inst := p.InstanceByPath(path); inst != nil {
		return []*model.PluginInstance{inst}
	}
	return nil
}

func (c *Client) onPayload(pl *message.Payload) {
	c.mu.Lock()
	var inst *model.PluginInstance
	if n := c.nodes[pl.Path.Node]; n != nil {
		inst = n.Instance(pl.Path)
	}
	if inst == nil {
		c.emitLocked(Event{Kind: EventUnmatchedPayload, Node: pl.Node(), Time: pl.Time, Payload: pl})
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordPayload(inst != nil)
	}
	if inst == nil {
		return
	}
	if err := c.pool.Submit(delivery{instance: inst, payload: pl}); err != nil {
		c.logger.Warn("payload dropped",
			"node", pl.Path.Node,
			"pipeline", pl.Path.Pipeline,
			"signature", pl.Path.Signature,
			"instance", pl.Path.Instance,
			"error", err)
	}
}

func (c *Client) recordRoute(route string) {
	if c.metrics != nil {
		c.metrics.RecordNotification(route)
	}
}
