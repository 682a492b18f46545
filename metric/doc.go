// Package metric provides Prometheus metrics for the edge client and an HTTP
// server exposing them.
//
// # Layers
//
//  1. Metrics: the client metric set (correlator, orchestrator, NATS), registered automatically
//  2. MetricsRegistry: Prometheus registry plus duplicate-safe registration of component metrics
//  3. Server: /metrics (OpenMetrics enabled) and /health
//
// # Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry, client.Health)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        slog.Error("metrics server failed", "error", err)
//	    }
//	}()
//
//	m := registry.CoreMetrics()
//	m.RecordRequestCreated("simple")
//	m.RecordNotification("broadcast")
//
// Components register their own collectors under a "service.metric" key.
// Registering the same key twice returns an Invalid error:
//
//	err := registry.RegisterCounterVec("worker_pool", "payload_processed_total", vec)
//
// # Metric names
//
// All client metrics use the "tsclient" namespace:
//
//	tsclient_requests_created_total{kind}
//	tsclient_requests_settled_total{kind,outcome}
//	tsclient_requests_pending
//	tsclient_notifications_routed_total{route}
//	tsclient_heartbeats_received_total{node}
//	tsclient_payloads_delivered_total
//	tsclient_payloads_unmatched_total
//	tsclient_warmup_held_total{type}
//	tsclient_commands_published_total{action}
//	tsclient_commands_fleet_rejections_total{action}
//	tsclient_codec_decode_errors_total{subject}
//	tsclient_nats_connected
//	tsclient_nats_reconnects_total
//	tsclient_nats_circuit_breaker
package metric
