// Package model holds the client view of remote state.
//
// A Node groups the data capture threads and pipelines this client controls on
// one remote node. A Pipeline owns exactly one DataCaptureThread (its id is the
// pipeline id) and an ordered list of PluginInstances. Instances of linkable
// signatures may form a linking graph: a collector with linked instances, each
// linked instance pointing back to exactly one collector.
//
// Entities refer to their owners by id only. An instance knows its node and
// pipeline ids but holds no pointer to the pipeline.
//
// Heartbeats are applied with Node.Reconcile. Reconciliation is idempotent and
// keeps existing instance objects alive, so references held by consumers stay
// valid across heartbeats.
//
// Instance mutators (tags, schedule, forced pause, links) write through the
// change-tracked config, so a later update sends them as part of the delta.
//
// Types in this package are not safe for concurrent use except for listener
// registration, Universe and Fleet.
package model
