package changeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_NestedSet(t *testing.T) {
	cfg := NewObject(map[string]any{
		"b":     map[string]any{"c": 1, "d": "keep"},
		"other": 3,
	})

	cfg.Object("b").Set("c", 5)

	assert.Equal(t, map[string]any{"b": map[string]any{"c": 5}}, cfg.Changeset())
	assert.Equal(t, 5, cfg.Value()["b"].(map[string]any)["c"], "write reaches the underlying map")
}

func TestObject_SetSameValueIsNoop(t *testing.T) {
	cfg := NewObject(map[string]any{"a": 1, "list": []any{1, 2}})

	cfg.Set("a", 1)
	cfg.Set("list", []any{1, 2})
	assert.False(t, cfg.HasChanges())
	assert.Empty(t, cfg.Changeset())

	cfg.Set("a", 2)
	cfg.Set("a", 2)
	assert.Equal(t, map[string]any{"a": 2}, cfg.Changeset())
}

func TestObject_NewKeyAndReplace(t *testing.T) {
	cfg := NewObject(nil)
	cfg.Set("threshold", 0.5)
	cfg.Set("zone", map[string]any{"x": 1})

	// nested write after replacing the whole value is covered by the replacement
	cfg.Object("zone").Set("x", 2)

	assert.Equal(t, map[string]any{
		"threshold": 0.5,
		"zone":      map[string]any{"x": 2},
	}, cfg.Changeset())
}

func TestObject_ChangesetIsCopy(t *testing.T) {
	cfg := NewObject(map[string]any{})
	cfg.Set("m", map[string]any{"k": 1})

	cs := cfg.Changeset()
	cs["m"].(map[string]any)["k"] = 99

	assert.Equal(t, 1, cfg.Value()["m"].(map[string]any)["k"])
}

func TestArray_SparseByIndex(t *testing.T) {
	cfg := NewObject(map[string]any{
		"points": []any{
			map[string]any{"x": 0},
			map[string]any{"x": 1},
			map[string]any{"x": 2},
		},
	})

	points := cfg.Array("points")
	require.NotNil(t, points)
	points.Object(2).Set("x", 20)
	points.Append(map[string]any{"x": 3})

	assert.Equal(t, map[string]any{
		"points": map[int]any{
			2: map[string]any{"x": 20},
			3: map[string]any{"x": 3},
		},
	}, cfg.Changeset())
	assert.Len(t, cfg.Value()["points"], 4, "append is stored in the parent")
}

func TestArray_SetBounds(t *testing.T) {
	arr := NewArray([]any{1, 2})
	arr.Set(5, 1)
	arr.Set(-1, 1)
	assert.False(t, arr.HasChanges())

	arr.Set(0, 1)
	assert.False(t, arr.HasChanges())

	arr.Set(1, 3)
	assert.Equal(t, map[int]any{1: 3}, arr.Changeset())

	_, ok := arr.Get(7)
	assert.False(t, ok)
}

func TestObject_Commit(t *testing.T) {
	cfg := NewObject(map[string]any{"b": map[string]any{"c": 1}})
	cfg.Object("b").Set("c", 2)
	cfg.Set("a", true)
	require.True(t, cfg.HasChanges())

	cfg.Commit()
	assert.False(t, cfg.HasChanges())
	assert.Empty(t, cfg.Changeset())

	cfg.Object("b").Set("c", 3)
	assert.Equal(t, map[string]any{"b": map[string]any{"c": 3}}, cfg.Changeset())
}

func TestObject_CommitSent(t *testing.T) {
	tests := []struct {
		name  string
		sent  func(*Object)
		after func(*Object)
		want  map[string]any
	}{
		{
			name:  "later write on another key stays",
			sent:  func(o *Object) { o.Set("a", 1) },
			after: func(o *Object) { o.Set("b", 2) },
			want:  map[string]any{"b": 2},
		},
		{
			name:  "later write on the same key stays",
			sent:  func(o *Object) { o.Set("a", 1) },
			after: func(o *Object) { o.Set("a", 5) },
			want:  map[string]any{"a": 5},
		},
		{
			name:  "value restored to the sent one is committed",
			sent:  func(o *Object) { o.Set("a", 1) },
			after: func(o *Object) { o.Set("a", 2); o.Set("a", 1) },
			want:  map[string]any{},
		},
		{
			name:  "nested sibling write stays",
			sent:  func(o *Object) { o.Object("n").Set("x", 1) },
			after: func(o *Object) { o.Object("n").Set("y", 2) },
			want:  map[string]any{"n": map[string]any{"y": 2}},
		},
		{
			name:  "array index written later stays",
			sent:  func(o *Object) { o.Array("l").Set(0, 9) },
			after: func(o *Object) { o.Array("l").Set(1, 8) },
			want:  map[string]any{"l": map[int]any{1: 8}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewObject(map[string]any{
				"a": 0,
				"b": 0,
				"n": map[string]any{"x": 0, "y": 0},
				"l": []any{0, 0},
			})
			tt.sent(cfg)
			sent := cfg.Changeset()
			tt.after(cfg)

			cfg.CommitSent(sent)
			assert.Equal(t, tt.want, cfg.Changeset())
			assert.Equal(t, len(tt.want) > 0, cfg.HasChanges())
		})
	}
}

func TestObject_Transparent(t *testing.T) {
	cfg := NewObject(map[string]any{"z": 1, "a": 2, "n": map[string]any{}})

	assert.Equal(t, []string{"a", "n", "z"}, cfg.Keys())
	assert.True(t, cfg.Has("z"))
	assert.Equal(t, 3, cfg.Len())

	v, ok := cfg.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Nil(t, cfg.Object("a"))
	assert.Nil(t, cfg.Array("n"))

	cfg.Delete("z")
	assert.False(t, cfg.Has("z"))
	assert.False(t, cfg.HasChanges())
}

func TestObject_SetWrappedValue(t *testing.T) {
	src := NewObject(map[string]any{"k": 1})
	cfg := NewObject(map[string]any{})
	cfg.Set("copy", src)

	assert.Equal(t, map[string]any{"copy": map[string]any{"k": 1}}, cfg.Changeset())
}

func TestObject_RefreshKeepsPendingWrites(t *testing.T) {
	cfg := NewObject(map[string]any{"a": 1, "b": 1, "n": map[string]any{"x": 1}})
	cfg.Set("a", 2)
	cfg.Object("n").Set("x", 2)

	cfg.Refresh(map[string]any{"a": 10, "b": 10, "c": 10, "n": map[string]any{"x": 10}})

	assert.Equal(t, 2, cfg.Value()["a"])
	assert.Equal(t, 10, cfg.Value()["b"])
	assert.Equal(t, 10, cfg.Value()["c"])
	assert.Equal(t, map[string]any{"x": 2}, cfg.Value()["n"])
	assert.Equal(t, map[string]any{"a": 2, "n": map[string]any{"x": 2}}, cfg.Changeset())
}
