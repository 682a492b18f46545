package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

// maxInflatedSize bounds ENCODED_DATA after decompression
const maxInflatedSize = 16 << 20

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Decode parses a broker message into a Heartbeat, Notification or Payload
func Decode(data []byte) (message.Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "codec", "Decode", "validate json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "codec", "Decode", "check object")
	}

	switch t := message.EventType(root.Get(KeyEventType).String()); t {
	case message.EventHeartbeat:
		return decodeHeartbeat(root)
	case message.EventNotification:
		return decodeNotification(root), nil
	case message.EventPayload:
		return decodePayload(data, root)
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrUnknownEventType, t),
			"codec", "Decode", "read event type")
	}
}

func decodeEnvelope(root gjson.Result) message.Envelope {
	return message.Envelope{
		Sender:    root.Get(KeySender).String(),
		Time:      parseTime(root.Get(KeyTimestamp)),
		Initiator: root.Get(KeyInitiator).String(),
		SessionID: root.Get(KeySession).String(),
	}
}

func decodePath(root gjson.Result) message.Path {
	arr := root.Get(KeyPath).Array()
	seg := make([]any, len(arr))
	for i, v := range arr {
		if v.Type == gjson.String {
			seg[i] = v.String()
		}
	}
	return message.PathFromSegments(seg)
}

func decodeNotification(root gjson.Result) *message.Notification {
	n := &message.Notification{
		Envelope:         decodeEnvelope(root),
		Path:             decodePath(root),
		NotificationType: message.NotificationType(root.Get(KeyNotificationType).String()),
		Code:             message.Code(root.Get(KeyNotificationCode).Int()),
		Message:          root.Get(KeyNotification).String(),
		Module:           root.Get(KeyModule).String(),
	}
	if info := root.Get(KeyInfo); info.IsObject() {
		n.Info, _ = info.Value().(map[string]any)
	}
	return n
}

func decodePayload(data []byte, root gjson.Result) (*message.Payload, error) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errors.WrapInvalid(err, "codec", "Decode", "unmarshal payload")
	}
	return &message.Payload{
		Envelope: decodeEnvelope(root),
		Path:     decodePath(root),
		Data:     body,
	}, nil
}

func decodeHeartbeat(root gjson.Result) (*message.Heartbeat, error) {
	hb := &message.Heartbeat{Envelope: decodeEnvelope(root)}

	body := root
	if encoded := root.Get(KeyEncodedData); encoded.Exists() {
		inflated, err := Inflate(encoded.String())
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(inflated) {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "codec", "decodeHeartbeat", "validate encoded data")
		}
		body = gjson.ParseBytes(inflated)
	}

	body.Get(KeyDCTStats).ForEach(func(key, value gjson.Result) bool {
		hb.DCTs = append(hb.DCTs, decodeDCTStats(key.String(), value))
		return true
	})
	for _, v := range body.Get(KeyActivePlugins).Array() {
		hb.ActivePlugins = append(hb.ActivePlugins, decodeActivePlugin(v))
	}
	return hb, nil
}

func decodeDCTStats(id string, v gjson.Result) message.DCTStats {
	stats := message.DCTStats{
		ID:             id,
		Type:           v.Get(KeyType).String(),
		Initiator:      v.Get(KeyInitiator).String(),
		Config:         objectValue(v.Get(KeyConfig)),
		LastUpdateTime: parseTime(v.Get(KeyLastUpdateTime)),
		Rate: message.Rate{
			Actual:     v.Get(KeyRateActual).Float(),
			Configured: v.Get(KeyRateConfigured).Float(),
			Target:     v.Get(KeyRateTarget).Float(),
		},
		Status: message.Status{
			Flow:       v.Get(KeyStatusFlow).Bool(),
			Collecting: v.Get(KeyStatusCollecting).Bool(),
			Idle:       v.Get(KeyStatusIdle).Float(),
			IdleAlert:  v.Get(KeyStatusIdleAlert).Bool(),
			Fails:      int(v.Get(KeyStatusFails).Int()),
		},
	}
	for _, line := range v.Get(KeyStatusLog).Array() {
		stats.Status.Log = append(stats.Status.Log, line.String())
	}
	return stats
}

func decodeActivePlugin(v gjson.Result) message.ActivePlugin {
	ap := message.ActivePlugin{
		StreamID:   v.Get(KeyStreamID).String(),
		Signature:  v.Get(KeySignature).String(),
		InstanceID: v.Get(KeyInstanceID).String(),
		Frequency:  v.Get(KeyFrequency).Float(),
		Timers: message.Timers{
			Init:        parseTime(v.Get(KeyInitTime)),
			Exec:        parseTime(v.Get(KeyExecTime)),
			Config:      parseTime(v.Get(KeyConfigTime)),
			LastPayload: parseTime(v.Get(KeyLastPayloadTime)),
			FirstError:  parseTime(v.Get(KeyFirstErrorTime)),
			LastError:   parseTime(v.Get(KeyLastErrorTime)),
		},
		OutsideWorkingHours: v.Get(KeyOutsideWorkingHours).Bool(),
		Config:              objectValue(v.Get(KeyInstanceConfig)),
	}
	v.Get(KeyTags).ForEach(func(key, value gjson.Result) bool {
		ap.Tags = append(ap.Tags, message.Tag{Key: key.String(), Value: value.String()})
		return true
	})
	return ap
}

func objectValue(v gjson.Result) map[string]any {
	if !v.IsObject() {
		return nil
	}
	m, _ := v.Value().(map[string]any)
	return m
}

func parseTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		sec := v.Float()
		return time.Unix(0, int64(sec*float64(time.Second))).UTC()
	case gjson.String:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v.String()); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Inflate decodes base64 zlib data
func Inflate(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.WrapInvalid(err, "codec", "Inflate", "decode base64")
	}
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WrapInvalid(err, "codec", "Inflate", "open zlib stream")
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxInflatedSize+1))
	if err != nil {
		return nil, errors.WrapInvalid(err, "codec", "Inflate", "inflate")
	}
	if len(out) > maxInflatedSize {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "codec", "Inflate", "check inflated size")
	}
	return out, nil
}

// Deflate compresses data into the ENCODED_DATA form
func Deflate(data []byte) (string, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return "", errors.Wrap(err, "codec", "Deflate", "compress")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "codec", "Deflate", "flush")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
