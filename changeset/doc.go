// Package changeset tracks mutations of plugin instance configurations.
//
// An Object wraps a map[string]any and an Array wraps a []any. Reads are
// transparent. Reading a nested map or slice returns a wrapper of the same
// kind, so writes at any depth are observed:
//
//	cfg := changeset.NewObject(map[string]any{"b": map[string]any{"c": 1}})
//	cfg.Object("b").Set("c", 5)
//	cfg.Changeset() // map[string]any{"b": map[string]any{"c": 5}}
//
// A write is recorded only when the new value differs from the current one
// (reflect.DeepEqual). Array changes are reported sparsely as map[int]any keyed
// by index. Deletions pass through to the underlying value and are not recorded.
//
// Commit clears the recorded changes once the delta has been acknowledged.
//
// Wrappers are not safe for concurrent use.
package changeset
