package changeset

import (
	"reflect"
	"sort"
)

type tracker interface {
	changes() any
	dirty() bool
	commit()
	commitSent(sent any)
}

// Object tracks writes to a map[string]any
type Object struct {
	value    map[string]any
	local    map[string]any
	children map[string]tracker
}

// NewObject wraps value. A nil map is replaced by an empty one.
func NewObject(value map[string]any) *Object {
	if value == nil {
		value = make(map[string]any)
	}
	return &Object{
		value:    value,
		local:    make(map[string]any),
		children: make(map[string]tracker),
	}
}

// Value returns the underlying map
func (o *Object) Value() map[string]any {
	return o.value
}

// Len returns the number of keys
func (o *Object) Len() int {
	return len(o.value)
}

// Has reports whether key is present
func (o *Object) Has(key string) bool {
	_, ok := o.value[key]
	return ok
}

// Keys returns the keys in sorted order
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.value))
	for k := range o.value {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at key. Nested maps and slices come back wrapped.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.value[key]
	if !ok {
		return nil, false
	}
	if child, ok := o.children[key]; ok {
		return child, true
	}
	switch typed := v.(type) {
	case map[string]any:
		child := NewObject(typed)
		o.children[key] = child
		return child, true
	case []any:
		child := newArray(typed, func(next []any) { o.value[key] = next })
		o.children[key] = child
		return child, true
	}
	return v, true
}

// Object returns the nested object at key, or nil if key does not hold a map
func (o *Object) Object(key string) *Object {
	v, _ := o.Get(key)
	obj, _ := v.(*Object)
	return obj
}

// Array returns the nested array at key, or nil if key does not hold a slice
func (o *Object) Array(key string) *Array {
	v, _ := o.Get(key)
	arr, _ := v.(*Array)
	return arr
}

// Set writes value at key and records it if it differs from the current value.
// Wrapped values are stored unwrapped.
func (o *Object) Set(key string, value any) {
	value = unwrap(value)
	if cur, ok := o.value[key]; ok && reflect.DeepEqual(cur, value) {
		return
	}
	o.value[key] = value
	o.local[key] = value
	delete(o.children, key)
}

// Refresh overwrites values from a remote snapshot without recording them.
// Keys with a pending local write keep the local value.
func (o *Object) Refresh(values map[string]any) {
	for k, v := range values {
		if o.Pending(k) {
			continue
		}
		o.value[k] = v
		delete(o.children, k)
	}
}

// Pending reports whether key holds a write not committed yet
func (o *Object) Pending(key string) bool {
	if _, set := o.local[key]; set {
		return true
	}
	child, ok := o.children[key]
	return ok && child.dirty()
}

// Delete removes key from the underlying map
func (o *Object) Delete(key string) {
	delete(o.value, key)
	delete(o.local, key)
	delete(o.children, key)
}

// HasChanges reports whether any write was recorded at any depth
func (o *Object) HasChanges() bool {
	return o.dirty()
}

// Changeset returns the sparse recursive diff of recorded writes
func (o *Object) Changeset() map[string]any {
	return o.changes().(map[string]any)
}

// Commit forgets all recorded writes
func (o *Object) Commit() {
	o.commit()
}

// CommitSent forgets the recorded writes that still hold the values in sent,
// a changeset taken earlier. Writes made after it stay recorded.
func (o *Object) CommitSent(sent map[string]any) {
	o.commitSent(sent)
}

func (o *Object) changes() any {
	out := make(map[string]any, len(o.local))
	for k, v := range o.local {
		out[k] = deepCopy(v)
	}
	for k, child := range o.children {
		if _, set := o.local[k]; set {
			continue
		}
		if child.dirty() {
			out[k] = child.changes()
		}
	}
	return out
}

func (o *Object) dirty() bool {
	if len(o.local) > 0 {
		return true
	}
	for _, child := range o.children {
		if child.dirty() {
			return true
		}
	}
	return false
}

func (o *Object) commit() {
	o.local = make(map[string]any)
	for _, child := range o.children {
		child.commit()
	}
}

func (o *Object) commitSent(sent any) {
	m, ok := sent.(map[string]any)
	if !ok {
		return
	}
	for k, v := range m {
		if cur, set := o.local[k]; set {
			if !reflect.DeepEqual(cur, v) {
				continue
			}
			delete(o.local, k)
		}
		if child, ok := o.children[k]; ok {
			child.commitSent(v)
		}
	}
}

// Array tracks writes to a []any by index
type Array struct {
	value    []any
	store    func([]any)
	local    map[int]any
	children map[int]tracker
}

// NewArray wraps value
func NewArray(value []any) *Array {
	return newArray(value, nil)
}

func newArray(value []any, store func([]any)) *Array {
	return &Array{
		value:    value,
		store:    store,
		local:    make(map[int]any),
		children: make(map[int]tracker),
	}
}

// Value returns the underlying slice
func (a *Array) Value() []any {
	return a.value
}

// Len returns the number of elements
func (a *Array) Len() int {
	return len(a.value)
}

// Get returns the element at i. Nested maps and slices come back wrapped.
func (a *Array) Get(i int) (any, bool) {
	if i < 0 || i >= len(a.value) {
		return nil, false
	}
	if child, ok := a.children[i]; ok {
		return child, true
	}
	switch typed := a.value[i].(type) {
	case map[string]any:
		child := NewObject(typed)
		a.children[i] = child
		return child, true
	case []any:
		child := newArray(typed, func(next []any) { a.value[i] = next })
		a.children[i] = child
		return child, true
	}
	return a.value[i], true
}

// Object returns the nested object at i, or nil
func (a *Array) Object(i int) *Object {
	v, _ := a.Get(i)
	obj, _ := v.(*Object)
	return obj
}

// Array returns the nested array at i, or nil
func (a *Array) Array(i int) *Array {
	v, _ := a.Get(i)
	arr, _ := v.(*Array)
	return arr
}

// Set writes value at index i. Out of range indexes are ignored.
func (a *Array) Set(i int, value any) {
	if i < 0 || i >= len(a.value) {
		return
	}
	value = unwrap(value)
	if reflect.DeepEqual(a.value[i], value) {
		return
	}
	a.value[i] = value
	a.local[i] = value
	delete(a.children, i)
}

// Append adds value at the end and records it under its new index
func (a *Array) Append(value any) {
	value = unwrap(value)
	a.value = append(a.value, value)
	a.local[len(a.value)-1] = value
	if a.store != nil {
		a.store(a.value)
	}
}

// HasChanges reports whether any write was recorded at any depth
func (a *Array) HasChanges() bool {
	return a.dirty()
}

// Changeset returns recorded writes keyed by index
func (a *Array) Changeset() map[int]any {
	return a.changes().(map[int]any)
}

// Commit forgets all recorded writes
func (a *Array) Commit() {
	a.commit()
}

// CommitSent forgets the recorded writes that still hold the values in sent
func (a *Array) CommitSent(sent map[int]any) {
	a.commitSent(sent)
}

func (a *Array) changes() any {
	out := make(map[int]any, len(a.local))
	for i, v := range a.local {
		out[i] = deepCopy(v)
	}
	for i, child := range a.children {
		if _, set := a.local[i]; set {
			continue
		}
		if child.dirty() {
			out[i] = child.changes()
		}
	}
	return out
}

func (a *Array) dirty() bool {
	if len(a.local) > 0 {
		return true
	}
	for _, child := range a.children {
		if child.dirty() {
			return true
		}
	}
	return false
}

func (a *Array) commit() {
	a.local = make(map[int]any)
	for _, child := range a.children {
		child.commit()
	}
}

// commitSent accepts the index map of a changeset or a whole slice
func (a *Array) commitSent(sent any) {
	var lookup func(int) (any, bool)
	switch typed := sent.(type) {
	case map[int]any:
		lookup = func(i int) (any, bool) {
			v, ok := typed[i]
			return v, ok
		}
	case []any:
		lookup = func(i int) (any, bool) {
			if i < 0 || i >= len(typed) {
				return nil, false
			}
			return typed[i], true
		}
	default:
		return
	}
	for i, cur := range a.local {
		if v, ok := lookup(i); ok && reflect.DeepEqual(cur, v) {
			delete(a.local, i)
		}
	}
	for i, child := range a.children {
		if _, set := a.local[i]; set {
			continue
		}
		if v, ok := lookup(i); ok {
			child.commitSent(v)
		}
	}
}

func unwrap(v any) any {
	switch typed := v.(type) {
	case *Object:
		return typed.value
	case *Array:
		return typed.value
	}
	return v
}

func deepCopy(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}
