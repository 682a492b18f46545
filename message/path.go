package message

import (
	"strings"
)

// PathSeparator joins path segments in Path.Key
const PathSeparator = ":"

// Path addresses a pipeline or a plugin instance on a node.
// Signature and Instance are empty for pipeline-level paths.
type Path struct {
	Node      string
	Pipeline  string
	Signature string
	Instance  string
}

// PipelinePath returns the pipeline-level path for node and pipeline.
func PipelinePath(node, pipeline string) Path {
	return Path{Node: node, Pipeline: pipeline}
}

// InstancePath returns the instance-level path.
func InstancePath(node, pipeline, signature, instance string) Path {
	return Path{Node: node, Pipeline: pipeline, Signature: signature, Instance: instance}
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, PathSeparator, `\`+PathSeparator)

// Key returns the joined index key of the path. Separators and backslashes
// inside segments are escaped, so distinct paths never share a key.
func (p Path) Key() string {
	return strings.Join([]string{
		keyEscaper.Replace(p.Node),
		keyEscaper.Replace(p.Pipeline),
		keyEscaper.Replace(p.Signature),
		keyEscaper.Replace(p.Instance),
	}, PathSeparator)
}

// String implements fmt.Stringer
func (p Path) String() string {
	return p.Key()
}

// IsPipelineLevel reports whether the path addresses a pipeline rather than an instance
func (p Path) IsPipelineLevel() bool {
	return p.Signature == "" && p.Instance == ""
}

// IsZero reports whether no segment is set
func (p Path) IsZero() bool {
	return p == Path{}
}

// PipelineLevel strips signature and instance
func (p Path) PipelineLevel() Path {
	return Path{Node: p.Node, Pipeline: p.Pipeline}
}

// Segments returns the wire form of the path: empty signature or instance become nil.
func (p Path) Segments() []any {
	seg := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	return []any{seg(p.Node), seg(p.Pipeline), seg(p.Signature), seg(p.Instance)}
}

// PathFromSegments builds a Path from its wire form. Missing or null segments are left empty.
func PathFromSegments(segments []any) Path {
	get := func(i int) string {
		if i >= len(segments) || segments[i] == nil {
			return ""
		}
		if s, ok := segments[i].(string); ok {
			return s
		}
		return ""
	}
	return Path{Node: get(0), Pipeline: get(1), Signature: get(2), Instance: get(3)}
}
