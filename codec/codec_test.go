package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

func TestDecode_Notification(t *testing.T) {
	data := []byte(`{
		"EE_EVENT_TYPE": "NOTIFICATION",
		"EE_ID": "edge-1",
		"EE_TIMESTAMP": "2024-03-01 10:00:00.250000",
		"EE_PAYLOAD_PATH": ["edge-1", "cam", "VIEW_SCENE_01", "v1"],
		"INITIATOR_ID": "client-a",
		"SESSION_ID": "s-1",
		"NOTIFICATION_TYPE": "EXCEPTION",
		"NOTIFICATION_CODE": -101,
		"NOTIFICATION": "bad config",
		"INFO": {"line": 3},
		"MODULE": "plugin"
	}`)

	ev, err := Decode(data)
	require.NoError(t, err)
	n, ok := ev.(*message.Notification)
	require.True(t, ok)

	assert.Equal(t, message.InstancePath("edge-1", "cam", "VIEW_SCENE_01", "v1"), n.Path)
	assert.True(t, n.IsException())
	assert.Equal(t, message.PluginConfigFailed, n.Code)
	assert.Equal(t, "bad config", n.Message)
	assert.Equal(t, map[string]any{"line": 3.0}, n.Info)
	assert.Equal(t, "client-a", n.Initiator)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 250000000, time.UTC), n.Time)
}

func TestDecode_PipelinePathWithNulls(t *testing.T) {
	ev, err := Decode([]byte(`{"EE_EVENT_TYPE":"NOTIFICATION","EE_PAYLOAD_PATH":["edge-1","cam",null,null],"NOTIFICATION_TYPE":"NORMAL"}`))
	require.NoError(t, err)
	n := ev.(*message.Notification)
	assert.True(t, n.Path.IsPipelineLevel())
	assert.True(t, n.Code.IsZero())
}

func TestDecode_Payload(t *testing.T) {
	ev, err := Decode([]byte(`{"EE_EVENT_TYPE":"PAYLOAD","EE_ID":"edge-1","EE_PAYLOAD_PATH":["edge-1","cam","SIG","i1"],"COUNT":4}`))
	require.NoError(t, err)
	p := ev.(*message.Payload)
	assert.Equal(t, "i1", p.Path.Instance)
	assert.Equal(t, 4.0, p.Data["COUNT"])
	assert.Equal(t, "edge-1", p.Node())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		is   error
	}{
		{"invalid json", `{`, errors.ErrInvalidData},
		{"not an object", `[1,2]`, errors.ErrInvalidData},
		{"unknown type", `{"EE_EVENT_TYPE":"OTHER"}`, errors.ErrUnknownEventType},
		{"bad encoded data", `{"EE_EVENT_TYPE":"HEARTBEAT","ENCODED_DATA":"!!"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			}
		})
	}
}

func sampleHeartbeat() *message.Heartbeat {
	return &message.Heartbeat{
		Envelope: message.Envelope{Sender: "edge-1", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		DCTs: []message.DCTStats{{
			ID:        "cam",
			Type:      "VideoStream",
			Initiator: "client-a",
			Config:    map[string]any{"URL": "rtsp://cam"},
			Rate:      message.Rate{Actual: 24, Configured: 25, Target: 25},
			Status:    message.Status{Flow: true, Fails: 2, Log: []string{"ok"}},
		}},
		ActivePlugins: []message.ActivePlugin{{
			StreamID:   "cam",
			Signature:  "VIEW_SCENE_01",
			InstanceID: "v1",
			Frequency:  2,
			Timers:     message.Timers{Init: time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)},
			Config:     map[string]any{"PROCESS_DELAY": 3.0},
			Tags:       []message.Tag{{Key: "zone", Value: "a"}},
		}},
	}
}

func TestHeartbeat_RoundTrip(t *testing.T) {
	hb := sampleHeartbeat()
	data, err := EncodeEvent(hb)
	require.NoError(t, err)

	ev, err := Decode(data)
	require.NoError(t, err)
	got := ev.(*message.Heartbeat)

	assert.Equal(t, "edge-1", got.Node())
	require.Len(t, got.DCTs, 1)
	assert.Equal(t, hb.DCTs[0].Rate, got.DCTs[0].Rate)
	assert.Equal(t, hb.DCTs[0].Status, got.DCTs[0].Status)
	assert.Equal(t, "client-a", got.DCTs[0].Initiator)
	assert.Equal(t, "rtsp://cam", got.DCTs[0].Config["URL"])

	require.Len(t, got.ActivePlugins, 1)
	ap := got.ActivePlugins[0]
	assert.Equal(t, hb.ActivePlugins[0].Timers.Init, ap.Timers.Init)
	assert.Equal(t, hb.ActivePlugins[0].Tags, ap.Tags)
	assert.Equal(t, 3.0, ap.Config["PROCESS_DELAY"])
}

func TestHeartbeat_EncodedData(t *testing.T) {
	body, err := EncodeEvent(sampleHeartbeat())
	require.NoError(t, err)
	encoded, err := Deflate(body)
	require.NoError(t, err)

	outer, err := json.Marshal(map[string]any{
		KeyEventType:   "HEARTBEAT",
		KeySender:      "edge-1",
		KeyEncodedData: encoded,
	})
	require.NoError(t, err)

	ev, err := Decode(outer)
	require.NoError(t, err)
	hb := ev.(*message.Heartbeat)
	assert.Equal(t, "edge-1", hb.Sender)
	require.Len(t, hb.DCTs, 1)
	assert.Equal(t, "cam", hb.DCTs[0].ID)
	require.Len(t, hb.ActivePlugins, 1)
}

func TestHeartbeat_OrderedTags(t *testing.T) {
	ev, err := Decode([]byte(`{"EE_EVENT_TYPE":"HEARTBEAT","EE_ID":"n",
		"ACTIVE_PLUGINS":[{"STREAM_ID":"s","SIGNATURE":"X","INSTANCE_ID":"i","ID_TAGS":{"z":"1","a":"2","m":"3"}}]}`))
	require.NoError(t, err)
	tags := ev.(*message.Heartbeat).ActivePlugins[0].Tags
	assert.Equal(t, []message.Tag{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}, {Key: "m", Value: "3"}}, tags)
}

func TestEncodeCommand(t *testing.T) {
	ts := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	cmd := &message.Command{
		Action:    message.ActionUpdateConfig,
		Initiator: "client-a",
		SessionID: "s-1",
		Time:      ts,
		Payload: &message.PipelineConfig{
			Name:   "cam",
			Type:   "VideoStream",
			Config: map[string]any{"URL": "rtsp://cam"},
			Plugins: []message.PluginGroup{{
				Signature: "VIEW_SCENE_01",
				Instances: []message.InstanceConfig{{ID: "v1", Config: map[string]any{"PROCESS_DELAY": 2}}},
			}},
		},
	}

	data, err := EncodeCommand("edge-1", cmd)
	require.NoError(t, err)

	node, decoded, payload, err := DecodeCommand(data)
	require.NoError(t, err)
	assert.Equal(t, "edge-1", node)
	assert.Equal(t, message.ActionUpdateConfig, decoded.Action)
	assert.Equal(t, "client-a", decoded.Initiator)
	assert.Equal(t, ts, decoded.Time)

	body := payload.(map[string]any)
	assert.Equal(t, "cam", body["NAME"])
	assert.Equal(t, "rtsp://cam", body["URL"])
	plugins := body["PLUGINS"].([]any)
	require.Len(t, plugins, 1)
	instances := plugins[0].(map[string]any)["INSTANCES"].([]any)
	assert.Equal(t, "v1", instances[0].(map[string]any)["INSTANCE_ID"])
	assert.Equal(t, 2.0, instances[0].(map[string]any)["PROCESS_DELAY"])
}

func TestEncodeCommand_Payloads(t *testing.T) {
	tests := []struct {
		name     string
		payload  message.CommandPayload
		expected any
	}{
		{"archive", &message.ArchiveConfig{Name: "cam"}, map[string]any{"NAME": "cam"}},
		{"engine", message.EngineCommand{}, map[string]any{}},
		{
			"batch",
			&message.BatchInstanceUpdate{Updates: []message.InstanceUpdate{{Name: "cam", Signature: "S", InstanceID: "i", Config: map[string]any{"A": 1}}}},
			[]any{map[string]any{"NAME": "cam", "SIGNATURE": "S", "INSTANCE_ID": "i", "INSTANCE_CONFIG": map[string]any{"A": 1.0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeCommand("n", &message.Command{Action: message.ActionArchiveConfig, Payload: tt.payload})
			require.NoError(t, err)
			_, _, payload, err := DecodeCommand(data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, payload)
		})
	}

	_, err := EncodeCommand("n", nil)
	assert.True(t, errors.IsInvalid(err))
}
