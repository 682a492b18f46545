package model

import (
	"sort"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/schema"
)

// Pipeline is a DCT plus its ordered plugin instances on one node
type Pipeline struct {
	node           string
	dct            *DataCaptureThread
	instances      []*PluginInstance
	pendingWatches []message.Path
	closed         bool
}

// NewPipeline creates a pipeline owning dct
func NewPipeline(node string, dct *DataCaptureThread) *Pipeline {
	return &Pipeline{node: node, dct: dct}
}

// ID returns the pipeline id, the DCT id
func (p *Pipeline) ID() string { return p.dct.ID() }

// Node returns the node id
func (p *Pipeline) Node() string { return p.node }

// DCT returns the owned data capture thread
func (p *Pipeline) DCT() *DataCaptureThread { return p.dct }

// Path returns the pipeline-level path
func (p *Pipeline) Path() message.Path { return message.PipelinePath(p.node, p.ID()) }

// Closed reports whether the pipeline was archived
func (p *Pipeline) Closed() bool { return p.closed }

// MarkClosed flags the pipeline as archived
func (p *Pipeline) MarkClosed() { p.closed = true }

// Instances returns the instances in creation order
func (p *Pipeline) Instances() []*PluginInstance {
	out := make([]*PluginInstance, len(p.instances))
	copy(out, p.instances)
	return out
}

// Instance finds an instance by signature and id
func (p *Pipeline) Instance(signature, id string) *PluginInstance {
	for _, inst := range p.instances {
		if inst.signature == signature && inst.id == id {
			return inst
		}
	}
	return nil
}

// InstanceByPath finds the instance addressed by path
func (p *Pipeline) InstanceByPath(path message.Path) *PluginInstance {
	if path.Node != p.node || path.Pipeline != p.ID() {
		return nil
	}
	return p.Instance(path.Signature, path.Instance)
}

// Attach tracks candidate. A new instance is added and, unless suppressWatch is
// set, its path is queued for the next deploy. A candidate matching an existing
// instance is merged into it and the existing instance is returned.
func (p *Pipeline) Attach(candidate *PluginInstance, suppressWatch bool) (*PluginInstance, bool) {
	if existing := p.Instance(candidate.signature, candidate.id); existing != nil {
		existing.refresh(candidate)
		return existing, false
	}
	candidate.node = p.node
	candidate.pipelineID = p.ID()
	p.instances = append(p.instances, candidate)
	if !suppressWatch {
		p.pendingWatches = append(p.pendingWatches, candidate.Path())
	}
	return candidate, true
}

// RemoveInstance detaches inst and repairs the linking graph.
// It returns the sorted ids of pipelines whose linking state changed.
func (p *Pipeline) RemoveInstance(inst *PluginInstance) ([]string, error) {
	idx := -1
	for i, candidate := range p.instances {
		if candidate == inst {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.WrapInvalid(errors.ErrInstanceNotFound, "Pipeline", "RemoveInstance", "find instance")
	}

	p.instances = append(p.instances[:idx], p.instances[idx+1:]...)
	path := inst.Path()
	for i, w := range p.pendingWatches {
		if w == path {
			p.pendingWatches = append(p.pendingWatches[:i], p.pendingWatches[i+1:]...)
			break
		}
	}

	touched := inst.unlinkAll()
	if len(touched) == 1 {
		return nil, nil
	}
	ids := affected(touched...)
	sort.Strings(ids)
	return ids, nil
}

// PendingWatches returns instance paths waiting for the next deploy
func (p *Pipeline) PendingWatches() []message.Path {
	out := make([]message.Path, len(p.pendingWatches))
	copy(out, p.pendingWatches)
	return out
}

// ClearPendingWatches forgets queued watches after a deploy
func (p *Pipeline) ClearPendingWatches() {
	p.pendingWatches = nil
}

// Compile builds the full pipeline config for UPDATE_CONFIG
func (p *Pipeline) Compile(reg *schema.Registry) *message.PipelineConfig {
	cfg := &message.PipelineConfig{
		Name:   p.ID(),
		Type:   p.dct.Type,
		Config: reg.Resolve(p.dct.Type).Compile(p.dct.Config, false),
	}

	groups := make(map[string]int)
	for _, inst := range p.instances {
		i, ok := groups[inst.signature]
		if !ok {
			i = len(cfg.Plugins)
			groups[inst.signature] = i
			cfg.Plugins = append(cfg.Plugins, message.PluginGroup{Signature: inst.signature})
		}
		cfg.Plugins[i].Instances = append(cfg.Plugins[i].Instances, message.InstanceConfig{
			ID:     inst.id,
			Config: reg.Resolve(inst.signature).Compile(inst.config.Value(), false),
		})
	}
	return cfg
}
