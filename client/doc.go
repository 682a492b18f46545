// Package client is the orchestrator of the edge SDK.
//
// A Client receives decoded events from a Transport and routes them:
//
//   - heartbeats update the per-node entity model (DCTs, pipelines, plugin
//     instances) and the universe of known nodes
//   - notifications go first to the pending request watching their exact path;
//     without one, non-normal notifications are broadcast to the listeners of
//     the addressed instances
//   - payloads are delivered to the listeners of their instance on a worker
//     pool keyed by instance path, so one instance sees its payloads in order
//
// Commands are published through Publish or the pipeline helpers (Deploy,
// UpdateInstance, BatchUpdate, SendPipelineCommand, ClosePipeline). Each
// returns a *request.Future settled by the notifications that answer it:
//
//	c := client.New("ops", tr, client.WithFleet("gts-1"))
//	if err := c.Start(ctx); err != nil {
//		return err
//	}
//	p, _ := c.CreatePipeline("gts-1", "cam", schema.DCTVideoStream, map[string]any{"url": src})
//	c.AttachInstance("gts-1", p.ID(), schema.SignatureViewScene, "v1", nil)
//	res, err := c.Deploy(ctx, "gts-1", p.ID()).Wait(ctx)
//
// Engine commands (RestartNode, ShutdownNode) are never correlated. They are
// refused before sending when the node is outside the fleet, and the refusal
// is reported on the Events channel.
//
// With a buffer store configured, notifications and payloads from a node that
// has not sent a heartbeat yet are held and delivered right after its first
// heartbeat, so they find the pipelines the heartbeat reconstructs.
package client
