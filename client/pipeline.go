package client

import (
	"context"
	"fmt"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/model"
	"github.com/AiXpand/tsclient-sub000/request"
)

// CreatePipeline tracks a new pipeline on node around a DCT owned by this
// client. Nothing is sent until Deploy.
func (c *Client) CreatePipeline(node, id, dctType string, config map[string]any) (*model.Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dct := model.NewDataCaptureThread(id, dctType, c.name, config)
	p, err := c.nodeLocked(node).CreatePipeline(dct)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("pipeline created", "node", node, "pipeline", id, "type", dctType)
	return p, nil
}

// RemovePipeline stops tracking a pipeline locally. Pending requests watching
// any of its paths are destroyed and their futures fail with ErrPipelineClosed.
func (c *Client) RemovePipeline(node, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removePipelineLocked(node, id)
}

func (c *Client) removePipelineLocked(node, id string) error {
	n := c.nodes[node]
	if n == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %s/%s", errors.ErrPipelineNotFound, node, id),
			"Client", "RemovePipeline", "find node")
	}
	if _, err := n.RemovePipeline(id); err != nil {
		return err
	}

	destroyed := c.manager.DestroyWhere(func(path message.Path) bool {
		return path.Node == node && path.Pipeline == id
	})
	c.abortLocked(destroyed, errors.WrapInvalid(
		fmt.Errorf("%w: %s/%s", errors.ErrPipelineClosed, node, id),
		"Client", "RemovePipeline", "wait for request"))

	c.logger.Debug("pipeline removed",
		"node", node,
		"pipeline", id,
		"destroyed_requests", len(destroyed))
	return nil
}

// AttachInstance adds a plugin instance to a pipeline. config is the local
// form. Attaching an identity that already exists merges config into the
// existing instance and returns it. A new instance is watched by the next Deploy.
func (c *Client) AttachInstance(node, pipeline, signature, id string, config map[string]any,
	opts ...model.InstanceOption) (*model.PluginInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.pipelineLocked(node, pipeline)
	if err != nil {
		return nil, err
	}
	if p.Closed() {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s/%s", errors.ErrPipelineClosed, node, pipeline),
			"Client", "AttachInstance", "check pipeline")
	}

	opts = append([]model.InstanceOption{model.WithLinkable(c.registry.Linkable(signature))}, opts...)
	inst, created := p.Attach(model.NewPluginInstance(signature, id, config, opts...), false)
	c.logger.Debug("instance attached",
		"node", node,
		"pipeline", pipeline,
		"signature", signature,
		"instance", id,
		"created", created)
	return inst, nil
}

// RemoveInstance detaches the instance at path, drops it from every pending
// request and repairs the linking graph. It returns the ids of pipelines whose
// linking state changed and need a deploy.
func (c *Client) RemoveInstance(path message.Path) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.pipelineLocked(path.Node, path.Pipeline)
	if err != nil {
		return nil, err
	}
	inst := p.InstanceByPath(path)
	if inst == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, path),
			"Client", "RemoveInstance", "find instance")
	}
	affected, err := p.RemoveInstance(inst)
	if err != nil {
		return nil, err
	}
	c.manager.Unwatch(path)
	return affected, nil
}

// Deploy sends the full pipeline config. The request watches the pipeline and
// every instance attached since the previous deploy. Instance configs are
// committed once the node confirms.
func (c *Client) Deploy(ctx context.Context, node, pipeline string) *request.Future {
	c.mu.Lock()
	p, err := c.pipelineLocked(node, pipeline)
	if err != nil {
		c.mu.Unlock()
		return request.Failed(err)
	}
	if p.Closed() {
		c.mu.Unlock()
		return request.Resolved(request.AlreadyClosed)
	}
	if err := c.runningLocked("Deploy"); err != nil {
		c.mu.Unlock()
		return request.Failed(err)
	}
	cmd := &message.Command{
		Action:  message.ActionUpdateConfig,
		Payload: p.Compile(c.registry),
	}
	watches := p.PendingWatches()
	p.ClearPendingWatches()
	sent := snapshotChanges(p.Instances()...)
	c.mu.Unlock()

	return c.publish(ctx, node, cmd, watches, func(request.Result) {
		commitSent(sent)
	})
}

// UpdateInstance sends only the recorded config changes of the instance at
// path. Without changes it resolves at once with request.NoChanges.
func (c *Client) UpdateInstance(ctx context.Context, path message.Path) *request.Future {
	c.mu.Lock()
	inst, err := c.instanceLocked(path)
	if err != nil {
		c.mu.Unlock()
		return request.Failed(err)
	}
	delta := inst.Delta(c.registry)
	sent := snapshotChanges(inst)
	c.mu.Unlock()

	if delta == nil {
		return request.Resolved(request.NoChanges)
	}
	cmd := &message.Command{Action: message.ActionUpdateInstance, Payload: delta}
	return c.publish(ctx, path.Node, cmd, nil, func(request.Result) {
		commitSent(sent)
	})
}

// BatchUpdate sends the recorded changes of several instances of node in one
// command. The request settles once every changed instance reported.
func (c *Client) BatchUpdate(ctx context.Context, node string, paths ...message.Path) *request.Future {
	c.mu.Lock()
	batch := &message.BatchInstanceUpdate{}
	var changed []*model.PluginInstance
	for _, path := range paths {
		if path.Node != node {
			c.mu.Unlock()
			return request.Failed(errors.WrapInvalid(
				fmt.Errorf("%w: %s is not on %s", errors.ErrInvalidData, path, node),
				"Client", "BatchUpdate", "check path"))
		}
		inst, err := c.instanceLocked(path)
		if err != nil {
			c.mu.Unlock()
			return request.Failed(err)
		}
		if delta := inst.Delta(c.registry); delta != nil {
			batch.Updates = append(batch.Updates, *delta)
			changed = append(changed, inst)
		}
	}
	sent := snapshotChanges(changed...)
	c.mu.Unlock()

	if len(changed) == 0 {
		return request.Resolved(request.NoChanges)
	}
	cmd := &message.Command{Action: message.ActionBatchUpdateInstance, Payload: batch}
	return c.publish(ctx, node, cmd, nil, func(request.Result) {
		commitSent(sent)
	})
}

// snapshotChanges copies the recorded changes going out with a command.
// Writes made while the command is in flight are not part of it.
func snapshotChanges(instances ...*model.PluginInstance) map[*model.PluginInstance]map[string]any {
	sent := make(map[*model.PluginInstance]map[string]any, len(instances))
	for _, inst := range instances {
		if inst.Config().HasChanges() {
			sent[inst] = inst.Config().Changeset()
		}
	}
	return sent
}

func commitSent(sent map[*model.PluginInstance]map[string]any) {
	for inst, changes := range sent {
		inst.Config().CommitSent(changes)
	}
}

// SendPipelineCommand sends a free-form command to a running pipeline
func (c *Client) SendPipelineCommand(ctx context.Context, node, pipeline string, command any) *request.Future {
	c.mu.Lock()
	p, err := c.pipelineLocked(node, pipeline)
	closed := err == nil && p.Closed()
	c.mu.Unlock()

	switch {
	case err != nil:
		return request.Failed(err)
	case closed:
		return request.Resolved(request.AlreadyClosed)
	}
	return c.publish(ctx, node, &message.Command{
		Action:  message.ActionPipelineCommand,
		Payload: &message.PipelineCommand{Name: pipeline, Command: command},
	}, nil, nil)
}

// ClosePipeline archives a pipeline on its node. Once the archive is
// confirmed the pipeline is marked closed and no longer tracked.
func (c *Client) ClosePipeline(ctx context.Context, node, pipeline string) *request.Future {
	c.mu.Lock()
	p, err := c.pipelineLocked(node, pipeline)
	closed := err == nil && p.Closed()
	c.mu.Unlock()

	switch {
	case err != nil:
		return request.Failed(err)
	case closed:
		return request.Resolved(request.AlreadyClosed)
	}
	cmd := &message.Command{
		Action:  message.ActionArchiveConfig,
		Payload: &message.ArchiveConfig{Name: pipeline},
	}
	return c.publish(ctx, node, cmd, nil, func(request.Result) {
		p.MarkClosed()
		if err := c.removePipelineLocked(node, pipeline); err != nil {
			c.logger.Debug("archived pipeline already gone", "node", node, "pipeline", pipeline, "error", err)
		}
	})
}

// Link makes the instance at collector collect the one at other. It returns
// the ids of pipelines whose linking state changed.
func (c *Client) Link(collector, other message.Path) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, b, err := c.pairLocked(collector, other)
	if err != nil {
		return nil, err
	}
	return a.Link(b)
}

// Unlink detaches other from its collector
func (c *Client) Unlink(collector, other message.Path) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, b, err := c.pairLocked(collector, other)
	if err != nil {
		return nil, err
	}
	return a.Unlink(b)
}

func (c *Client) pairLocked(first, second message.Path) (*model.PluginInstance, *model.PluginInstance, error) {
	if first.Node != second.Node {
		return nil, nil, errors.WrapInvalid(errors.ErrNotLinkable, "Client", "Link", "compare nodes")
	}
	a, err := c.instanceLocked(first)
	if err != nil {
		return nil, nil, err
	}
	b, err := c.instanceLocked(second)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// SetInstanceTag sets a tag of the instance at path
func (c *Client) SetInstanceTag(path message.Path, key, value string) error {
	return c.withInstance(path, func(inst *model.PluginInstance) { inst.SetTag(key, value) })
}

// RemoveInstanceTag removes a tag of the instance at path
func (c *Client) RemoveInstanceTag(path message.Path, key string) error {
	return c.withInstance(path, func(inst *model.PluginInstance) { inst.RemoveTag(key) })
}

// SetInstanceSchedule sets the working hours of the instance at path. A nil
// schedule clears them.
func (c *Client) SetInstanceSchedule(path message.Path, s *model.Schedule) error {
	return c.withInstance(path, func(inst *model.PluginInstance) { inst.SetSchedule(s) })
}

// SetInstancePaused sets the forced pause flag of the instance at path
func (c *Client) SetInstancePaused(path message.Path, paused bool) error {
	return c.withInstance(path, func(inst *model.PluginInstance) { inst.SetForcePaused(paused) })
}

// SetInstanceConfig records a config change of the instance at path
func (c *Client) SetInstanceConfig(path message.Path, key string, value any) error {
	return c.withInstance(path, func(inst *model.PluginInstance) { inst.Config().Set(key, value) })
}

func (c *Client) withInstance(path message.Path, fn func(*model.PluginInstance)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, err := c.instanceLocked(path)
	if err != nil {
		return err
	}
	fn(inst)
	return nil
}
