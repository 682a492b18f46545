package message

import "fmt"

// Code is a response code carried by a notification. Zero means no code.
// Every failure code is the negation of its success code.
type Code int

// Pipeline band
const (
	PipelineOK          Code = 1
	PipelineDCTConfigOK Code = 2
	PipelineArchiveOK   Code = 3

	PipelineFailed          = -PipelineOK
	PipelineDCTConfigFailed = -PipelineDCTConfigOK
	PipelineArchiveFailed   = -PipelineArchiveOK
)

// Plugin band
const (
	PluginOK                     Code = 100
	PluginConfigOK               Code = 101
	PluginPauseOK                Code = 102
	PluginResumeOK               Code = 103
	PluginInstanceCommandOK      Code = 110
	PluginWorkingHoursShiftStart Code = 120
	PluginWorkingHoursShiftEnd   Code = 121

	PluginFailed                       = -PluginOK
	PluginConfigFailed                 = -PluginConfigOK
	PluginPauseFailed                  = -PluginPauseOK
	PluginResumeFailed                 = -PluginResumeOK
	PluginInstanceCommandFailed        = -PluginInstanceCommandOK
	PluginWorkingHoursShiftStartFailed = -PluginWorkingHoursShiftStart
	PluginWorkingHoursShiftEndFailed   = -PluginWorkingHoursShiftEnd
)

// Band groups codes by the entity level they report on
type Band int

const (
	BandNone Band = iota
	BandPipeline
	BandPlugin
)

var codeNames = map[Code]string{
	PipelineOK:                   "PIPELINE_OK",
	PipelineDCTConfigOK:          "PIPELINE_DCT_CONFIG_OK",
	PipelineArchiveOK:            "PIPELINE_ARCHIVE_OK",
	PluginOK:                     "PLUGIN_OK",
	PluginConfigOK:               "PLUGIN_CONFIG_OK",
	PluginPauseOK:                "PLUGIN_PAUSE_OK",
	PluginResumeOK:               "PLUGIN_RESUME_OK",
	PluginInstanceCommandOK:      "PLUGIN_INSTANCE_COMMAND_OK",
	PluginWorkingHoursShiftStart: "PLUGIN_WORKING_HOURS_SHIFT_START",
	PluginWorkingHoursShiftEnd:   "PLUGIN_WORKING_HOURS_SHIFT_END",
}

// IsSuccess reports a positive code
func (c Code) IsSuccess() bool { return c > 0 }

// IsFailure reports a negative code
func (c Code) IsFailure() bool { return c < 0 }

// IsZero reports the absence of a code
func (c Code) IsZero() bool { return c == 0 }

// Negate returns the paired code of the opposite outcome
func (c Code) Negate() Code { return -c }

// Band returns the level the code belongs to
func (c Code) Band() Band {
	abs := c
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1 && abs < 100:
		return BandPipeline
	case abs >= 100 && abs < 200:
		return BandPlugin
	default:
		return BandNone
	}
}

// String returns the symbolic name. Failure codes use the _FAILED suffix in place of _OK.
func (c Code) String() string {
	if c == 0 {
		return "NONE"
	}
	if name, ok := codeNames[c]; ok {
		return name
	}
	if name, ok := codeNames[-c]; ok {
		if n := len(name); n > 3 && name[n-3:] == "_OK" {
			return name[:n-3] + "_FAILED"
		}
		return name + "_FAILED"
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationNormal    NotificationType = "NORMAL"
	NotificationAbnormal  NotificationType = "ABNORMAL FUNCTIONING"
	NotificationException NotificationType = "EXCEPTION"
)

// IsNormal reports the NORMAL type. An empty type counts as normal.
func (t NotificationType) IsNormal() bool {
	return t == NotificationNormal || t == ""
}
