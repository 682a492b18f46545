// Package schema maps typed configurations to wire dictionaries and back.
//
// Each plugin signature or DCT type may have a static Descriptor listing its
// fields: local camelCase name, wire key, and serialization flags. Fields not
// listed, and types without a descriptor, fall back to plain key conversion
// (camelCase to UPPER_SNAKE and back).
//
//	reg := schema.DefaultRegistry()
//	d := reg.Resolve("ARRIVAL_CNT_01")
//	wire := d.Compile(map[string]any{"objectType": "person"}, false)
//	// {"OBJECT_TYPE": ["person"], "ALERT_RAISE_VALUE": 0.5}
//
// Compile and Build have no side effects.
package schema
