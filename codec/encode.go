package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

// EncodeCommand serializes cmd for node
func EncodeCommand(node string, cmd *message.Command) ([]byte, error) {
	if cmd == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "codec", "EncodeCommand", "check command")
	}
	payload, err := commandPayload(cmd.Payload)
	if err != nil {
		return nil, err
	}
	ts := cmd.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	out := map[string]any{
		KeySender:    node,
		KeyAction:    string(cmd.Action),
		KeyPayload:   payload,
		KeyInitiator: cmd.Initiator,
		KeySession:   cmd.SessionID,
		KeyTime:      ts.UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.WrapInvalid(err, "codec", "EncodeCommand", "marshal command")
	}
	return data, nil
}

func commandPayload(p message.CommandPayload) (any, error) {
	switch typed := p.(type) {
	case nil:
		return nil, nil
	case *message.PipelineConfig:
		out := make(map[string]any, len(typed.Config)+3)
		for k, v := range typed.Config {
			out[k] = v
		}
		out[KeyName] = typed.Name
		out[KeyType] = typed.Type
		plugins := make([]any, 0, len(typed.Plugins))
		for _, group := range typed.Plugins {
			instances := make([]any, 0, len(group.Instances))
			for _, inst := range group.Instances {
				entry := make(map[string]any, len(inst.Config)+1)
				for k, v := range inst.Config {
					entry[k] = v
				}
				entry[KeyInstanceID] = inst.ID
				instances = append(instances, entry)
			}
			plugins = append(plugins, map[string]any{
				KeySignature: group.Signature,
				KeyInstances: instances,
			})
		}
		out[KeyPlugins] = plugins
		return out, nil
	case *message.PipelineCommand:
		return map[string]any{KeyName: typed.Name, KeyPipelineCommand: typed.Command}, nil
	case *message.ArchiveConfig:
		return map[string]any{KeyName: typed.Name}, nil
	case *message.InstanceUpdate:
		return instanceUpdate(typed), nil
	case *message.BatchInstanceUpdate:
		list := make([]any, 0, len(typed.Updates))
		for i := range typed.Updates {
			list = append(list, instanceUpdate(&typed.Updates[i]))
		}
		return list, nil
	case message.EngineCommand, *message.EngineCommand:
		return map[string]any{}, nil
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: payload %T", errors.ErrInvalidData, p),
			"codec", "EncodeCommand", "encode payload")
	}
}

func instanceUpdate(u *message.InstanceUpdate) map[string]any {
	return map[string]any{
		KeyName:           u.Name,
		KeySignature:      u.Signature,
		KeyInstanceID:     u.InstanceID,
		KeyInstanceConfig: u.Config,
	}
}

// DecodeCommand parses an encoded command back into its envelope fields and raw payload.
// Nodes and test doubles use it; the client never receives commands.
func DecodeCommand(data []byte) (node string, cmd *message.Command, payload any, err error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, nil, errors.WrapInvalid(err, "codec", "DecodeCommand", "unmarshal command")
	}
	node, _ = raw[KeySender].(string)
	action, _ := raw[KeyAction].(string)
	initiator, _ := raw[KeyInitiator].(string)
	session, _ := raw[KeySession].(string)
	ts, _ := raw[KeyTime].(string)
	t, _ := time.Parse(time.RFC3339Nano, ts)
	return node, &message.Command{
		Action:    message.Action(action),
		Initiator: initiator,
		SessionID: session,
		Time:      t,
	}, raw[KeyPayload], nil
}

// EncodeEvent serializes an inbound event in broker form. Test doubles and
// simulators use it to produce traffic.
func EncodeEvent(ev message.Event) ([]byte, error) {
	out := make(map[string]any)
	env := ev.Meta()

	switch typed := ev.(type) {
	case *message.Notification:
		out[KeyPath] = typed.Path.Segments()
		out[KeyNotificationType] = string(typed.NotificationType)
		if !typed.Code.IsZero() {
			out[KeyNotificationCode] = int(typed.Code)
		}
		out[KeyNotification] = typed.Message
		if typed.Info != nil {
			out[KeyInfo] = typed.Info
		}
		if typed.Module != "" {
			out[KeyModule] = typed.Module
		}
	case *message.Payload:
		for k, v := range typed.Data {
			out[k] = v
		}
		out[KeyPath] = typed.Path.Segments()
	case *message.Heartbeat:
		stats := make(map[string]any, len(typed.DCTs))
		for _, d := range typed.DCTs {
			stats[d.ID] = map[string]any{
				KeyType:             d.Type,
				KeyInitiator:        d.Initiator,
				KeyConfig:           d.Config,
				KeyLastUpdateTime:   formatTime(d.LastUpdateTime),
				KeyRateActual:       d.Rate.Actual,
				KeyRateConfigured:   d.Rate.Configured,
				KeyRateTarget:       d.Rate.Target,
				KeyStatusFlow:       d.Status.Flow,
				KeyStatusCollecting: d.Status.Collecting,
				KeyStatusIdle:       d.Status.Idle,
				KeyStatusIdleAlert:  d.Status.IdleAlert,
				KeyStatusFails:      d.Status.Fails,
				KeyStatusLog:        d.Status.Log,
			}
		}
		plugins := make([]any, 0, len(typed.ActivePlugins))
		for _, ap := range typed.ActivePlugins {
			tags := make(map[string]any, len(ap.Tags))
			for _, t := range ap.Tags {
				tags[t.Key] = t.Value
			}
			plugins = append(plugins, map[string]any{
				KeyStreamID:            ap.StreamID,
				KeySignature:           ap.Signature,
				KeyInstanceID:          ap.InstanceID,
				KeyFrequency:           ap.Frequency,
				KeyInitTime:            formatTime(ap.Timers.Init),
				KeyExecTime:            formatTime(ap.Timers.Exec),
				KeyConfigTime:          formatTime(ap.Timers.Config),
				KeyLastPayloadTime:     formatTime(ap.Timers.LastPayload),
				KeyFirstErrorTime:      formatTime(ap.Timers.FirstError),
				KeyLastErrorTime:       formatTime(ap.Timers.LastError),
				KeyOutsideWorkingHours: ap.OutsideWorkingHours,
				KeyInstanceConfig:      ap.Config,
				KeyTags:                tags,
			})
		}
		out[KeyDCTStats] = stats
		out[KeyActivePlugins] = plugins
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: event %T", errors.ErrUnknownEventType, ev),
			"codec", "EncodeEvent", "encode event")
	}

	out[KeyEventType] = string(ev.Type())
	out[KeySender] = env.Sender
	out[KeyTimestamp] = formatTime(env.Time)
	out[KeyInitiator] = env.Initiator
	out[KeySession] = env.SessionID

	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.WrapInvalid(err, "codec", "EncodeEvent", "marshal event")
	}
	return data, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
