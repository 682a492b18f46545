// Package tsclient is a network client SDK for fleets of edge AI nodes.
//
// Edge nodes run pipelines: a data capture thread (DCT) acquiring a stream
// plus the plugin instances analysing it. Nodes talk to their clients over a
// shared broker. They publish heartbeats describing everything they run,
// notifications reporting the outcome of configuration changes, and payloads
// produced by plugin instances. Clients publish commands addressed to a node.
//
// The SDK keeps a local model of the pipelines owned by one client identity,
// sends configuration commands and correlates the notifications that answer
// them into a single future per command.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│           client.Client             │  Pipelines, deploys,
//	│   (publish, dispatch, warm-up)      │  instance updates
//	└─────────────────────────────────────┘
//	       ↓ owns               ↓ feeds
//	┌──────────────────┐  ┌──────────────────┐
//	│  model           │  │  request         │  Change-tracked configs,
//	│  (nodes, DCTs,   │  │  (correlator,    │  transaction kinds,
//	│   instances)     │  │   futures)       │  FIFO per path
//	└──────────────────┘  └──────────────────┘
//	       ↑ decoded by
//	┌─────────────────────────────────────┐
//	│  transport + codec + natsclient     │  Subjects, rate limits,
//	│                                     │  circuit breaker
//	└─────────────────────────────────────┘
//
// Supporting packages:
//   - changeset: records writes to instance configurations so only deltas are sent
//   - schema: converts typed configurations to UPPER_SNAKE wire dictionaries
//   - pkg/buffer: holds events of nodes that have not sent a heartbeat yet
//   - pkg/worker: delivers payloads to listeners, ordered per instance
//   - pkg/retry: backoff for the broker connection
//   - metric, health: Prometheus metrics and component health
//
// # Quick Start
//
//	nc, _ := natsclient.NewClient("nats://localhost:4222")
//	_ = nc.Connect(ctx)
//
//	c := client.New("ops", transport.New(nc, config.Defaults().Topics))
//	_ = c.Start(ctx)
//	defer c.Stop(5 * time.Second)
//
//	_, _ = c.CreatePipeline("gts-1", "cam", schema.DCTVideoStream, map[string]any{"url": "rtsp://cam"})
//	_, _ = c.AttachInstance("gts-1", "cam", schema.SignatureViewScene, "v1", nil)
//
//	res, err := c.Deploy(ctx, "gts-1", "cam").Wait(ctx)
//
// # Running
//
// cmd/edgectl wires the SDK to a broker from a JSON or YAML configuration
// with AIXP_* environment overrides and logs node traffic:
//
//	./bin/edgectl --config edgectl.yaml --log-format text
package tsclient
