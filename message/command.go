package message

import (
	"time"
)

// Action is the tag of an outbound command
type Action string

const (
	ActionUpdateConfig        Action = "UPDATE_CONFIG"
	ActionPipelineCommand     Action = "PIPELINE_COMMAND"
	ActionArchiveConfig       Action = "ARCHIVE_CONFIG"
	ActionUpdateInstance      Action = "UPDATE_PIPELINE_INSTANCE"
	ActionBatchUpdateInstance Action = "BATCH_UPDATE_PIPELINE_INSTANCE"
	ActionRestart             Action = "RESTART"
	ActionStop                Action = "STOP"
)

// IsEngineCommand reports actions addressed to the engine itself rather than a pipeline.
// They are never correlated.
func (a Action) IsEngineCommand() bool {
	return a == ActionRestart || a == ActionStop
}

// Command is an outbound message for a node
type Command struct {
	Action    Action
	Payload   CommandPayload
	Initiator string
	SessionID string
	Time      time.Time
}

// Targets returns the paths a command watches on node
func (c *Command) Targets(node string) []Path {
	if c == nil || c.Payload == nil {
		return nil
	}
	return c.Payload.Targets(node)
}

// CommandPayload is implemented by every typed command body.
// Targets derives the watch paths from the payload shape.
type CommandPayload interface {
	Targets(node string) []Path
}

// InstanceConfig is one plugin instance inside a pipeline config
type InstanceConfig struct {
	ID     string
	Config map[string]any
}

// PluginGroup groups the instances of one signature
type PluginGroup struct {
	Signature string
	Instances []InstanceConfig
}

// PipelineConfig carries a full pipeline definition
type PipelineConfig struct {
	Name    string
	Type    string
	Config  map[string]any
	Plugins []PluginGroup
}

// Targets implements CommandPayload. Instance watches are added by the caller on deploy.
func (p *PipelineConfig) Targets(node string) []Path {
	return []Path{PipelinePath(node, p.Name)}
}

// PipelineCommand is a free-form command for a running pipeline
type PipelineCommand struct {
	Name    string
	Command any
}

// Targets implements CommandPayload
func (p *PipelineCommand) Targets(node string) []Path {
	return []Path{PipelinePath(node, p.Name)}
}

// ArchiveConfig asks the node to archive a pipeline
type ArchiveConfig struct {
	Name string
}

// Targets implements CommandPayload
func (p *ArchiveConfig) Targets(node string) []Path {
	return []Path{PipelinePath(node, p.Name)}
}

// InstanceUpdate carries a config delta for one plugin instance
type InstanceUpdate struct {
	Name       string
	Signature  string
	InstanceID string
	Config     map[string]any
}

// Targets implements CommandPayload
func (p *InstanceUpdate) Targets(node string) []Path {
	return []Path{InstancePath(node, p.Name, p.Signature, p.InstanceID)}
}

// BatchInstanceUpdate updates several instances in one command
type BatchInstanceUpdate struct {
	Updates []InstanceUpdate
}

// Targets implements CommandPayload
func (p *BatchInstanceUpdate) Targets(node string) []Path {
	paths := make([]Path, 0, len(p.Updates))
	for i := range p.Updates {
		paths = append(paths, p.Updates[i].Targets(node)...)
	}
	return paths
}

// EngineCommand is the empty payload of RESTART and STOP
type EngineCommand struct{}

// Targets implements CommandPayload
func (EngineCommand) Targets(string) []Path { return nil }
