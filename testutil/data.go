package testutil

import (
	"time"

	"github.com/AiXpand/tsclient-sub000/message"
)

// Epoch is the fixed timestamp used by the builders
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// DCT builds heartbeat stats for a data capture thread
func DCT(id, typ, initiator string, config map[string]any) message.DCTStats {
	return message.DCTStats{
		ID:             id,
		Type:           typ,
		Initiator:      initiator,
		Config:         config,
		LastUpdateTime: Epoch,
		Status:         message.Status{Flow: true, Collecting: true},
	}
}

// Plugin builds an active plugin entry. config is in wire form.
func Plugin(stream, signature, instance string, config map[string]any) message.ActivePlugin {
	return message.ActivePlugin{
		StreamID:   stream,
		Signature:  signature,
		InstanceID: instance,
		Config:     config,
		Timers:     message.Timers{Init: Epoch},
	}
}

// Heartbeat builds a heartbeat sent by node
func Heartbeat(node string, dcts []message.DCTStats, plugins ...message.ActivePlugin) *message.Heartbeat {
	return &message.Heartbeat{
		Envelope:      message.Envelope{Sender: node, Time: Epoch},
		DCTs:          dcts,
		ActivePlugins: plugins,
	}
}

// Notification builds a notification for path
func Notification(path message.Path, typ message.NotificationType, code message.Code) *message.Notification {
	n := &message.Notification{
		Envelope:         message.Envelope{Sender: path.Node, Time: Epoch},
		Path:             path,
		NotificationType: typ,
		Code:             code,
	}
	if !code.IsZero() {
		n.Message = code.String()
	}
	return n
}

// PipelineNotification builds a NORMAL pipeline-level notification carrying code
func PipelineNotification(node, pipeline string, code message.Code) *message.Notification {
	return Notification(message.PipelinePath(node, pipeline), message.NotificationNormal, code)
}

// InstanceNotification builds a NORMAL instance-level notification carrying code
func InstanceNotification(node, pipeline, signature, instance string, code message.Code) *message.Notification {
	return Notification(message.InstancePath(node, pipeline, signature, instance), message.NotificationNormal, code)
}

// Exception builds an EXCEPTION notification for path
func Exception(path message.Path, text string) *message.Notification {
	n := Notification(path, message.NotificationException, 0)
	n.Message = text
	return n
}

// Payload builds plugin output for an instance path
func Payload(path message.Path, data map[string]any) *message.Payload {
	return &message.Payload{
		Envelope: message.Envelope{Sender: path.Node, Time: Epoch},
		Path:     path,
		Data:     data,
	}
}
