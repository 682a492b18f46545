package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiXpand/tsclient-sub000/errors"
)

func TestKeyConversion(t *testing.T) {
	tests := []struct {
		local string
		wire  string
	}{
		{"processDelay", "PROCESS_DELAY"},
		{"capResolution", "CAP_RESOLUTION"},
		{"url", "URL"},
		{"alertRaiseValue", "ALERT_RAISE_VALUE"},
		{"roi2Enabled", "ROI2_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			assert.Equal(t, tt.wire, ToWireKey(tt.local))
			assert.Equal(t, tt.local, FromWireKey(tt.wire))
		})
	}

	assert.Equal(t, "INSTANCE_ID", ToWireKey("instanceID"))
	assert.Equal(t, "URL_PATH", ToWireKey("URLPath"))
}

func TestDescriptor_Compile(t *testing.T) {
	reg := DefaultRegistry()
	d := reg.Resolve(SignatureArrivalCounting)

	wire := d.Compile(map[string]any{
		"objectType":       "person",
		"pointsOfInterest": []any{1, 2},
		"extraOption":      map[string]any{"nestedKey": 1},
	}, false)

	assert.Equal(t, map[string]any{
		"OBJECT_TYPE":       []any{"person"},
		"POINTS":            []any{1, 2},
		"EXTRA_OPTION":      map[string]any{"nestedKey": 1},
		"ALERT_RAISE_VALUE": 0.5,
	}, wire)
}

func TestDescriptor_CompilePartial(t *testing.T) {
	d := DefaultRegistry().Resolve(SignatureViewScene)

	wire := d.Compile(map[string]any{"processDelay": 3}, true)
	assert.Equal(t, map[string]any{"PROCESS_DELAY": 3}, wire)

	full := d.Compile(map[string]any{}, false)
	assert.Equal(t, map[string]any{"PROCESS_DELAY": 10, "AI_ENGINE": nil}, full)
}

func TestDescriptor_Build(t *testing.T) {
	d := DefaultRegistry().Resolve(DCTVideoStream)

	local := d.Build(map[string]any{
		"URL":            "rtsp://cam",
		"CAP_RESOLUTION": 5,
		"STREAM_TYPE":    "x",
	})

	assert.Equal(t, map[string]any{
		"url":           "rtsp://cam",
		"capResolution": 5,
		"streamType":    "x",
		"liveFeed":      true,
		"reconnectable": true,
	}, local)
}

func TestRegistry_DynamicFallback(t *testing.T) {
	reg := DefaultRegistry()

	_, ok := reg.Lookup("UNKNOWN_SIG")
	assert.False(t, ok)

	d := reg.Resolve("UNKNOWN_SIG")
	assert.Equal(t, "UNKNOWN_SIG", d.Type)
	assert.Equal(t, map[string]any{"SOME_VALUE": 1}, d.Compile(map[string]any{"someValue": 1}, false))

	assert.True(t, reg.Linkable(SignatureArrivalCounting))
	assert.False(t, reg.Linkable(SignatureViewScene))
	assert.False(t, reg.Linkable("UNKNOWN_SIG"))
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	err = reg.Register(Descriptor{})
	assert.True(t, errors.IsInvalid(err))

	err = reg.Register(Descriptor{Type: "X", Fields: []Field{{Name: "a"}, {Name: "b", WireKey: "A"}}})
	assert.True(t, errors.IsInvalid(err))

	require.NoError(t, reg.Register(Descriptor{Type: "X", Fields: []Field{{Name: "a"}}, Linkable: true}))
	assert.True(t, reg.Linkable("X"))
}
