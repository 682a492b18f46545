package schema

// Built-in DCT types
const (
	DCTVideoStream = "VideoStream"
	DCTVoid        = "VOID"
	DCTMetaStream  = "MetaStream"
)

// Built-in plugin signatures
const (
	SignatureViewScene       = "VIEW_SCENE_01"
	SignatureArrivalCounting = "ARRIVAL_CNT_01"
	SignatureCustomCode      = "CUSTOM_EXEC_01"
)

// Builtin returns the descriptors of the standard DCT types and plugin signatures
func Builtin() []Descriptor {
	return []Descriptor{
		{
			Type: DCTVideoStream,
			Fields: []Field{
				{Name: "url", WireKey: "URL", AlwaysSerialize: true},
				{Name: "liveFeed", Default: true},
				{Name: "capResolution", Default: 20},
				{Name: "reconnectable", Default: true},
			},
		},
		{Type: DCTVoid},
		{
			Type: DCTMetaStream,
			Fields: []Field{
				{Name: "collectedStreams", Array: true, AlwaysSerialize: true},
			},
		},
		{
			Type: SignatureViewScene,
			Fields: []Field{
				{Name: "processDelay", Default: 10},
				{Name: "aiEngine", WireKey: "AI_ENGINE", Nullable: true, AlwaysSerialize: true},
			},
		},
		{
			Type:     SignatureArrivalCounting,
			Linkable: true,
			Fields: []Field{
				{Name: "objectType", Array: true, AlwaysSerialize: true},
				{Name: "pointsOfInterest", WireKey: "POINTS", Array: true},
				{Name: "alertRaiseValue", Default: 0.5},
			},
		},
		{
			Type: SignatureCustomCode,
			Fields: []Field{
				{Name: "code", Nullable: true, AlwaysSerialize: true},
			},
		},
	}
}

// DefaultRegistry returns a registry holding the built-in descriptors
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}
