package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath_Key(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		expected string
		pipeline bool
	}{
		{"pipeline", PipelinePath("edge-1", "cam"), "edge-1:cam::", true},
		{"instance", InstancePath("edge-1", "cam", "PEOPLE", "i1"), "edge-1:cam:PEOPLE:i1", false},
		{"separator in segment", PipelinePath("a:b", "c"), `a\:b:c::`, true},
		{"backslash in segment", PipelinePath(`a\`, "b"), `a\\:b::`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.path.Key())
			assert.Equal(t, tt.pipeline, tt.path.IsPipelineLevel())
		})
	}
}

func TestPath_KeyDistinct(t *testing.T) {
	paths := []Path{
		PipelinePath("a:b", "c"),
		PipelinePath("a", "b:c"),
		InstancePath("a", "b", "c:", "d"),
		InstancePath("a", "b", "c", ":d"),
		PipelinePath(`a\`, ":b"),
		PipelinePath(`a\:`, "b"),
	}
	seen := make(map[string]Path, len(paths))
	for _, p := range paths {
		key := p.Key()
		prev, dup := seen[key]
		assert.False(t, dup, "%v and %v share key %q", prev, p, key)
		seen[key] = p
	}
}

func TestPath_Segments(t *testing.T) {
	p := PipelinePath("edge-1", "cam")
	seg := p.Segments()
	assert.Equal(t, []any{"edge-1", "cam", nil, nil}, seg)
	assert.Equal(t, p, PathFromSegments(seg))

	assert.Equal(t, Path{Node: "n"}, PathFromSegments([]any{"n"}))
	assert.True(t, PathFromSegments(nil).IsZero())

	inst := InstancePath("n", "p", "S", "i")
	assert.Equal(t, p.Node, inst.PipelineLevel().Node)
	assert.True(t, inst.PipelineLevel().IsPipelineLevel())
}

func TestCode_Pairs(t *testing.T) {
	pairs := []struct {
		ok     Code
		failed Code
	}{
		{PipelineOK, PipelineFailed},
		{PipelineDCTConfigOK, PipelineDCTConfigFailed},
		{PipelineArchiveOK, PipelineArchiveFailed},
		{PluginOK, PluginFailed},
		{PluginConfigOK, PluginConfigFailed},
		{PluginPauseOK, PluginPauseFailed},
		{PluginResumeOK, PluginResumeFailed},
		{PluginInstanceCommandOK, PluginInstanceCommandFailed},
		{PluginWorkingHoursShiftStart, PluginWorkingHoursShiftStartFailed},
		{PluginWorkingHoursShiftEnd, PluginWorkingHoursShiftEndFailed},
	}

	for _, p := range pairs {
		t.Run(p.ok.String(), func(t *testing.T) {
			assert.Equal(t, p.failed, p.ok.Negate())
			assert.True(t, p.ok.IsSuccess())
			assert.True(t, p.failed.IsFailure())
			assert.Equal(t, p.ok.Band(), p.failed.Band())
		})
	}
}

func TestCode_BandAndString(t *testing.T) {
	assert.Equal(t, BandPipeline, PipelineArchiveOK.Band())
	assert.Equal(t, BandPlugin, PluginConfigFailed.Band())
	assert.Equal(t, BandNone, Code(0).Band())

	assert.Equal(t, "PIPELINE_OK", PipelineOK.String())
	assert.Equal(t, "PIPELINE_ARCHIVE_FAILED", PipelineArchiveFailed.String())
	assert.Equal(t, "PLUGIN_WORKING_HOURS_SHIFT_START_FAILED", PluginWorkingHoursShiftStartFailed.String())
	assert.Equal(t, "NONE", Code(0).String())
	assert.Equal(t, "CODE(7)", Code(7).String())
}

func TestNotificationType(t *testing.T) {
	assert.True(t, NotificationNormal.IsNormal())
	assert.True(t, NotificationType("").IsNormal())
	assert.False(t, NotificationAbnormal.IsNormal())

	n := &Notification{NotificationType: NotificationException, Path: PipelinePath("edge-1", "p")}
	assert.True(t, n.IsException())
	assert.Equal(t, "edge-1", n.Node())
	assert.Equal(t, EventNotification, n.Type())
}

func TestCommand_Targets(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *Command
		expected []Path
	}{
		{
			name:     "update config",
			cmd:      &Command{Action: ActionUpdateConfig, Payload: &PipelineConfig{Name: "p"}},
			expected: []Path{PipelinePath("n", "p")},
		},
		{
			name:     "archive",
			cmd:      &Command{Action: ActionArchiveConfig, Payload: &ArchiveConfig{Name: "p"}},
			expected: []Path{PipelinePath("n", "p")},
		},
		{
			name: "batch",
			cmd: &Command{Action: ActionBatchUpdateInstance, Payload: &BatchInstanceUpdate{Updates: []InstanceUpdate{
				{Name: "p", Signature: "A", InstanceID: "1"},
				{Name: "p", Signature: "B", InstanceID: "2"},
			}}},
			expected: []Path{InstancePath("n", "p", "A", "1"), InstancePath("n", "p", "B", "2")},
		},
		{
			name:     "restart",
			cmd:      &Command{Action: ActionRestart, Payload: EngineCommand{}},
			expected: nil,
		},
		{
			name:     "nil command",
			cmd:      nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.Targets("n"))
		})
	}

	assert.True(t, ActionStop.IsEngineCommand())
	assert.False(t, ActionUpdateConfig.IsEngineCommand())
}
