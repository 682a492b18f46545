package client

import (
	"context"
	"fmt"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/request"
)

// EngineSent is the message of the future returned for a sent engine command
const EngineSent = "Sent"

// Publish sends cmd to node and returns a future settled by the notifications
// answering it. The request watches the paths derived from the payload plus
// watches. A nil cmd resolves at once with request.AlreadyClosed.
//
// Engine commands (RESTART, STOP) are not correlated: the future resolves as
// soon as the command is sent, or fails when node is outside the fleet.
func (c *Client) Publish(ctx context.Context, node string, cmd *message.Command, watches ...message.Path) *request.Future {
	return c.publish(ctx, node, cmd, watches, nil)
}

// publish registers the request before sending so an early answer cannot be
// missed. onResolve runs under c.mu before the future resolves.
func (c *Client) publish(ctx context.Context, node string, cmd *message.Command, watches []message.Path,
	onResolve func(request.Result)) *request.Future {
	if cmd == nil {
		return request.Resolved(request.AlreadyClosed)
	}
	c.stamp(cmd)

	if cmd.Action.IsEngineCommand() {
		if err := c.sendEngine(ctx, node, cmd); err != nil {
			return request.Failed(err)
		}
		return request.Resolved(EngineSent)
	}

	c.mu.Lock()
	if err := c.runningLocked("Publish"); err != nil {
		c.mu.Unlock()
		return request.Failed(err)
	}
	r, f, err := c.registerLocked(node, cmd, watches, onResolve)
	c.mu.Unlock()
	if err != nil {
		return request.Failed(err)
	}

	if err := c.transport.Send(ctx, node, cmd); err != nil {
		c.mu.Lock()
		r.Close()
		delete(c.futures, r.ID())
		c.mu.Unlock()
		f.Abort(errors.Wrap(err, "Client", "Publish", "send "+string(cmd.Action)))
		return f
	}

	c.logger.Debug("command published",
		"node", node,
		"action", string(cmd.Action),
		"request_id", r.ID(),
		"watches", len(r.ListWatches()))
	return f
}

// registerLocked creates the request and its future. c.mu must be held.
func (c *Client) registerLocked(node string, cmd *message.Command, watches []message.Path,
	onResolve func(request.Result)) (*request.Request, *request.Future, error) {
	var f *request.Future
	r, err := c.manager.Create(cmd.Action,
		func(res request.Result) {
			if onResolve != nil {
				onResolve(res)
			}
			c.settledLocked(node, f, res, EventTransactionResolved)
		},
		func(res request.Result) {
			c.settledLocked(node, f, res, EventTransactionRejected)
		})
	if err != nil {
		return nil, nil, err
	}

	f = request.NewFuture(r.ID())
	c.futures[r.ID()] = f
	for _, path := range cmd.Targets(node) {
		r.Watch(path)
	}
	for _, path := range watches {
		r.Watch(path)
	}
	return r, f, nil
}

// settledLocked completes the future of a settled request. It runs inside the
// request callbacks, with c.mu held.
func (c *Client) settledLocked(node string, f *request.Future, res request.Result, kind EventKind) {
	delete(c.futures, res.RequestID)
	if kind == EventTransactionResolved {
		f.Resolve(res)
	} else {
		f.Reject(res)
		c.logger.Info("transaction rejected",
			"node", node,
			"action", string(res.Action),
			"request_id", res.RequestID,
			"reason", res.Message)
	}
	c.emitLocked(Event{Kind: kind, Node: node, Action: res.Action, Result: &res})
}

// abortLocked settles the futures of destroyed requests with err. c.mu must be held.
func (c *Client) abortLocked(destroyed []*request.Request, err error) {
	for _, r := range destroyed {
		if f, ok := c.futures[r.ID()]; ok {
			f.Abort(err)
			delete(c.futures, r.ID())
		}
	}
}

func (c *Client) stamp(cmd *message.Command) *message.Command {
	cmd.Initiator = c.name
	if cmd.SessionID == "" {
		cmd.SessionID = c.sessionID
	}
	if cmd.Time.IsZero() {
		cmd.Time = c.now()
	}
	return cmd
}

// runningLocked fails unless the client is started and not stopped
func (c *Client) runningLocked(method string) error {
	switch {
	case c.stopped:
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Client", method, "check state")
	case !c.started:
		return errors.WrapInvalid(errors.ErrNotStarted, "Client", method, "check state")
	}
	return nil
}

// RestartNode asks a fleet node to restart its engine
func (c *Client) RestartNode(ctx context.Context, node string) error {
	return c.sendEngine(ctx, node, c.stamp(&message.Command{
		Action:  message.ActionRestart,
		Payload: message.EngineCommand{},
	}))
}

// ShutdownNode asks a fleet node to stop its engine
func (c *Client) ShutdownNode(ctx context.Context, node string) error {
	return c.sendEngine(ctx, node, c.stamp(&message.Command{
		Action:  message.ActionStop,
		Payload: message.EngineCommand{},
	}))
}

// sendEngine checks fleet membership before sending. A rejection is reported
// on the Events channel and no request is created.
func (c *Client) sendEngine(ctx context.Context, node string, cmd *message.Command) error {
	if !c.fleet.Contains(node) {
		err := errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrEngineNotInFleet, node),
			"Client", "sendEngine", "check fleet")
		c.mu.Lock()
		c.emitLocked(Event{Kind: EventFleetRejected, Node: node, Action: cmd.Action, Err: err})
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordFleetRejection(string(cmd.Action))
		}
		c.logger.Warn("engine command outside fleet rejected",
			"node", node,
			"action", string(cmd.Action))
		return err
	}

	c.mu.Lock()
	err := c.runningLocked("sendEngine")
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if err := c.transport.Send(ctx, node, cmd); err != nil {
		return errors.Wrap(err, "Client", "sendEngine", "send "+string(cmd.Action))
	}
	c.logger.Info("engine command sent", "node", node, "action", string(cmd.Action))
	return nil
}
