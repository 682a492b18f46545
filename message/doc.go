// Package message defines the internal message model shared by the edge client.
//
// Inbound traffic from the broker is decoded into one of three event kinds:
//
//   - Heartbeat: periodic state snapshot of a node (data capture threads and active plugins)
//   - Notification: status report addressed by a Path, optionally carrying a response Code
//   - Payload: plugin output addressed by a Path
//
// Every event carries an Envelope (sender node, time, initiator and session ids).
//
// # Paths
//
// A Path addresses an entity inside a node:
//
//	Path{Node: "edge-1", Pipeline: "cam-1"}                                         // pipeline level
//	Path{Node: "edge-1", Pipeline: "cam-1", Signature: "PEOPLE_COUNT", Instance: "i1"} // instance level
//
// Path.Key joins the segments with ":" and is the index key used by the
// request correlator. Empty segments stay empty so that pipeline and instance
// paths never collide.
//
// # Response codes
//
// Codes are small positive integers for success outcomes; the failure of the
// same outcome is the negated value. Pipeline-level codes live in 1..99 and
// plugin-level codes in 100..199:
//
//	PipelineOK.Negate() == PipelineFailed
//	PluginConfigFailed.IsFailure() == true
//	PluginOK.Band() == BandPlugin
//
// # Commands
//
// Outbound messages are Commands: an Action tag plus a typed payload. The
// action decides which correlation policy the request layer applies.
package message
