// Package codec translates between broker JSON and the message model.
//
// Inbound messages are sniffed with gjson: EE_EVENT_TYPE selects the event
// kind and only the fields the client uses are extracted. Payload bodies are
// kept whole. Heartbeats may arrive compressed, with the body replaced by
// ENCODED_DATA (base64 of zlib); Decode inflates it transparently.
//
//	ev, err := codec.Decode(data)
//	switch e := ev.(type) {
//	case *message.Heartbeat:
//	case *message.Notification:
//	case *message.Payload:
//	}
//
// Outbound commands are encoded with EncodeCommand:
//
//	{"EE_ID": node, "ACTION": ..., "PAYLOAD": ..., "INITIATOR_ID": ..., "SESSION_ID": ..., "TIME": ...}
package codec
