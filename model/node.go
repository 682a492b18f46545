package model

import (
	"fmt"
	"log/slog"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/schema"
)

// Node holds the DCTs and pipelines this client controls on one remote node
type Node struct {
	id        string
	dcts      map[string]*DataCaptureThread
	pipelines map[string]*Pipeline
	order     []string
}

// NewNode creates an empty node view
func NewNode(id string) *Node {
	return &Node{
		id:        id,
		dcts:      make(map[string]*DataCaptureThread),
		pipelines: make(map[string]*Pipeline),
	}
}

// ID returns the node id
func (n *Node) ID() string { return n.id }

// DCT returns a tracked DCT
func (n *Node) DCT(id string) *DataCaptureThread { return n.dcts[id] }

// DCTs returns the tracked DCTs in pipeline creation order
func (n *Node) DCTs() []*DataCaptureThread {
	out := make([]*DataCaptureThread, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.dcts[id])
	}
	return out
}

// Pipeline returns a tracked pipeline
func (n *Node) Pipeline(id string) *Pipeline { return n.pipelines[id] }

// Pipelines returns the pipelines in creation order
func (n *Node) Pipelines() []*Pipeline {
	out := make([]*Pipeline, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.pipelines[id])
	}
	return out
}

// CreatePipeline tracks a new pipeline around dct
func (n *Node) CreatePipeline(dct *DataCaptureThread) (*Pipeline, error) {
	if _, exists := n.pipelines[dct.ID()]; exists {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s/%s", errors.ErrPipelineExists, n.id, dct.ID()),
			"Node", "CreatePipeline", "check pipeline id")
	}
	p := NewPipeline(n.id, dct)
	n.dcts[dct.ID()] = dct
	n.pipelines[dct.ID()] = p
	n.order = append(n.order, dct.ID())
	return p, nil
}

// RemovePipeline stops tracking a pipeline and its DCT.
// Instances linked across pipelines are unlinked first.
func (n *Node) RemovePipeline(id string) (*Pipeline, error) {
	p, ok := n.pipelines[id]
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s/%s", errors.ErrPipelineNotFound, n.id, id),
			"Node", "RemovePipeline", "find pipeline")
	}
	for _, inst := range p.Instances() {
		if _, err := p.RemoveInstance(inst); err != nil {
			return nil, err
		}
	}
	delete(n.pipelines, id)
	delete(n.dcts, id)
	for i, oid := range n.order {
		if oid == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	return p, nil
}

// Instance finds an instance by path
func (n *Node) Instance(path message.Path) *PluginInstance {
	p := n.pipelines[path.Pipeline]
	if p == nil {
		return nil
	}
	return p.InstanceByPath(path)
}

// ReconcileResult summarizes a heartbeat ingestion
type ReconcileResult struct {
	NewPipelines []string
	Attached     int
	Refreshed    int
	Skipped      int
	Dropped      int
}

// Reconcile applies a heartbeat. DCTs of other initiators are skipped.
// Plugins on untracked streams are logged and dropped.
func (n *Node) Reconcile(hb *message.Heartbeat, initiator string, reg *schema.Registry, logger *slog.Logger) ReconcileResult {
	if logger == nil {
		logger = slog.Default()
	}
	var res ReconcileResult

	for _, stats := range hb.DCTs {
		if stats.Initiator != initiator {
			res.Skipped++
			continue
		}
		config := reg.Resolve(stats.Type).Build(stats.Config)
		if dct, ok := n.dcts[stats.ID]; ok {
			if err := dct.Update(stats, config); err != nil {
				logger.Warn("dct update rejected", "node", n.id, "dct", stats.ID, "error", err)
			}
			continue
		}
		if _, err := n.CreatePipeline(DCTFromStats(stats, config)); err != nil {
			logger.Warn("pipeline reconstruction failed", "node", n.id, "pipeline", stats.ID, "error", err)
			continue
		}
		res.NewPipelines = append(res.NewPipelines, stats.ID)
	}

	var attached []*PluginInstance
	for _, ap := range hb.ActivePlugins {
		p := n.pipelines[ap.StreamID]
		if p == nil {
			res.Dropped++
			logger.Debug("plugin on untracked stream dropped",
				"node", n.id, "pipeline", ap.StreamID, "signature", ap.Signature, "instance", ap.InstanceID)
			continue
		}
		candidate := NewPluginInstance(ap.Signature, ap.InstanceID,
			reg.Resolve(ap.Signature).Build(ap.Config),
			WithLinkable(reg.Linkable(ap.Signature)),
			WithTags(ap.Tags...),
			WithFrequency(ap.Frequency),
			WithTimers(ap.Timers))
		candidate.OutsideWorkingHours = ap.OutsideWorkingHours

		inst, created := p.Attach(candidate, true)
		if created {
			res.Attached++
		} else {
			res.Refreshed++
		}
		attached = append(attached, inst)
	}

	n.relink(attached)
	return res
}

// relink restores links reported by the node without recording config changes
func (n *Node) relink(instances []*PluginInstance) {
	for _, collector := range instances {
		list, ok := collector.config.Value()[KeyLinkedInstances].([]any)
		if !ok || collector.collector != nil {
			continue
		}
		for _, entry := range list {
			ref, ok := entry.([]any)
			if !ok || len(ref) != 2 {
				continue
			}
			pipelineID, _ := ref[0].(string)
			instanceID, _ := ref[1].(string)
			p := n.pipelines[pipelineID]
			if p == nil {
				continue
			}
			target := p.Instance(collector.signature, instanceID)
			if target == nil || target == collector || target.collector != nil || target.IsCollector() {
				continue
			}
			collector.linked = append(collector.linked, target)
			target.collector = collector
		}
	}
}
