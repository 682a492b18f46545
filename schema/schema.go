package schema

import (
	"sync"

	"github.com/AiXpand/tsclient-sub000/errors"
)

// Field describes one configuration field
type Field struct {
	// Name is the local camelCase name
	Name string
	// WireKey overrides the derived UPPER_SNAKE key
	WireKey string
	// Nullable fields are serialized as null when AlwaysSerialize is set and no value exists
	Nullable bool
	// Array fields always serialize as a list; a scalar is wrapped
	Array bool
	// AlwaysSerialize emits the field in full configs even when unset
	AlwaysSerialize bool
	// Default is used when the field is unset
	Default any
}

// Key returns the wire key of the field
func (f Field) Key() string {
	if f.WireKey != "" {
		return f.WireKey
	}
	return ToWireKey(f.Name)
}

// Descriptor describes the configuration of a plugin signature or a DCT type
type Descriptor struct {
	Type     string
	Fields   []Field
	Linkable bool
}

func (d Descriptor) byName() map[string]Field {
	m := make(map[string]Field, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Name] = f
	}
	return m
}

func (d Descriptor) byKey() map[string]Field {
	m := make(map[string]Field, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Key()] = f
	}
	return m
}

// Compile converts a local config to its wire dictionary.
// A partial compile (a changeset) skips defaults and always-serialized fields.
// Keys without a field are converted with ToWireKey. Nested values are left as they are.
func (d Descriptor) Compile(values map[string]any, partial bool) map[string]any {
	fields := d.byName()
	out := make(map[string]any, len(values)+len(d.Fields))

	for name, v := range values {
		f, known := fields[name]
		if !known {
			out[ToWireKey(name)] = v
			continue
		}
		if f.Array {
			v = asList(v)
		}
		out[f.Key()] = v
	}

	if partial {
		return out
	}
	for _, f := range d.Fields {
		if _, set := values[f.Name]; set {
			continue
		}
		switch {
		case f.Default != nil:
			out[f.Key()] = f.Default
		case f.AlwaysSerialize && f.Nullable:
			out[f.Key()] = nil
		case f.AlwaysSerialize && f.Array:
			out[f.Key()] = []any{}
		}
	}
	return out
}

// Build converts a wire dictionary to a local config, filling defaults
func (d Descriptor) Build(wire map[string]any) map[string]any {
	fields := d.byKey()
	out := make(map[string]any, len(wire))

	for key, v := range wire {
		f, known := fields[key]
		if !known {
			out[FromWireKey(key)] = v
			continue
		}
		if f.Array && v != nil {
			v = asList(v)
		}
		out[f.Name] = v
	}

	for _, f := range d.Fields {
		if _, set := out[f.Name]; !set && f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// Validate checks that field names and wire keys are unique
func (d Descriptor) Validate() error {
	names := make(map[string]bool, len(d.Fields))
	keys := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Descriptor", "Validate", "check field name of "+d.Type)
		}
		if names[f.Name] || keys[f.Key()] {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Descriptor", "Validate", "check duplicate field "+f.Name)
		}
		names[f.Name] = true
		keys[f.Key()] = true
	}
	return nil
}

// Registry maps signatures and DCT types to descriptors.
// Unknown types resolve to a dynamic descriptor that only converts keys.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry creates a registry holding descriptors
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{descriptors: make(map[string]Descriptor)}
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a descriptor
func (r *Registry) Register(d Descriptor) error {
	if d.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "check descriptor type")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.Type] = d
	return nil
}

// Lookup returns the registered descriptor of typ
func (r *Registry) Lookup(typ string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[typ]
	return d, ok
}

// Resolve returns the registered descriptor or a dynamic one
func (r *Registry) Resolve(typ string) Descriptor {
	if d, ok := r.Lookup(typ); ok {
		return d
	}
	return Descriptor{Type: typ}
}

// Linkable reports whether instances of signature support linking
func (r *Registry) Linkable(signature string) bool {
	d, ok := r.Lookup(signature)
	return ok && d.Linkable
}

func asList(v any) any {
	switch v.(type) {
	case nil, []any, []string, []int, []float64, []map[string]any:
		return v
	}
	return []any{v}
}
