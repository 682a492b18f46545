package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/schema"
)

const (
	testNode      = "edge-1"
	testInitiator = "client-a"
	linkSig       = schema.SignatureArrivalCounting
)

func newPipeline(t *testing.T, n *Node, id string) *Pipeline {
	t.Helper()
	p, err := n.CreatePipeline(NewDataCaptureThread(id, schema.DCTVideoStream, testInitiator, map[string]any{"url": "rtsp://x"}))
	require.NoError(t, err)
	return p
}

func linkable(id string) *PluginInstance {
	return NewPluginInstance(linkSig, id, nil, WithLinkable(true))
}

func TestDCT_UpdateIdentity(t *testing.T) {
	dct := NewDataCaptureThread("cam", schema.DCTVideoStream, testInitiator, nil)

	err := dct.Update(message.DCTStats{ID: "other"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDCTIdentityMismatch))
	assert.True(t, errors.IsInvalid(err))

	now := time.Now()
	require.NoError(t, dct.Update(message.DCTStats{
		ID:             "cam",
		Initiator:      "someone-else",
		LastUpdateTime: now,
		Rate:           message.Rate{Actual: 24},
	}, map[string]any{"url": "rtsp://y"}))
	assert.Equal(t, "cam", dct.ID())
	assert.Equal(t, testInitiator, dct.Initiator(), "initiator is immutable")
	assert.Equal(t, 24.0, dct.Rate.Actual)
	assert.Equal(t, "rtsp://y", dct.Config["url"])
}

func TestPipeline_AttachNewAndRefresh(t *testing.T) {
	n := NewNode(testNode)
	p := newPipeline(t, n, "cam")

	inst, created := p.Attach(NewPluginInstance("SIG", "i1", map[string]any{"threshold": 1}), false)
	require.True(t, created)
	assert.Equal(t, message.InstancePath(testNode, "cam", "SIG", "i1"), inst.Path())
	assert.Equal(t, []message.Path{inst.Path()}, p.PendingWatches())

	snapshot := NewPluginInstance("SIG", "i1", map[string]any{"threshold": 2}, WithFrequency(5))
	same, created := p.Attach(snapshot, false)
	assert.False(t, created)
	assert.Same(t, inst, same, "existing reference stays valid")
	assert.Equal(t, 2, inst.Config().Value()["threshold"])
	assert.Equal(t, 5.0, inst.Frequency)
	assert.Len(t, p.PendingWatches(), 1)
	assert.False(t, inst.Config().HasChanges(), "refresh is not a local change")

	_, created = p.Attach(NewPluginInstance("SIG", "i2", nil), true)
	assert.True(t, created)
	assert.Len(t, p.PendingWatches(), 1, "suppressed watch")
	assert.Len(t, p.Instances(), 2)

	p.ClearPendingWatches()
	assert.Empty(t, p.PendingWatches())
}

func TestPipeline_RefreshTags(t *testing.T) {
	n := NewNode(testNode)
	p := newPipeline(t, n, "cam")

	inst, _ := p.Attach(NewPluginInstance("SIG", "i1", nil, WithTags(message.Tag{Key: "zone", Value: "a"})), true)
	tags := inst.Tags()

	_, _ = p.Attach(NewPluginInstance("SIG", "i1", nil,
		WithTags(message.Tag{Key: "zone", Value: "b"}, message.Tag{Key: "site", Value: "x"})), true)
	assert.Same(t, tags, inst.Tags(), "tags are updated in place")
	assert.Equal(t, []message.Tag{{Key: "zone", Value: "b"}, {Key: "site", Value: "x"}}, tags.Entries())

	inst.SetTag("zone", "c")
	_, _ = p.Attach(NewPluginInstance("SIG", "i1", nil, WithTags(message.Tag{Key: "zone", Value: "d"})), true)
	v, _ := inst.Tags().Get("zone")
	assert.Equal(t, "c", v, "pending local tag write survives")
	assert.Equal(t, map[string]any{"zone": "c", "site": "x"}, inst.Config().Changeset()[KeyTags])

	inst.Config().Commit()
	_, _ = p.Attach(NewPluginInstance("SIG", "i1", nil, WithTags(message.Tag{Key: "zone", Value: "d"})), true)
	v, _ = inst.Tags().Get("zone")
	assert.Equal(t, "d", v)
}

func TestPipeline_RemoveCollectorPromotesFirstLinked(t *testing.T) {
	n := NewNode(testNode)
	p := newPipeline(t, n, "cam")
	q := newPipeline(t, n, "door")

	collector, _ := p.Attach(linkable("c"), true)
	l1, _ := q.Attach(linkable("l1"), true)
	l2, _ := p.Attach(linkable("l2"), true)
	l3, _ := p.Attach(linkable("l3"), true)

	for _, l := range []*PluginInstance{l1, l2, l3} {
		_, err := collector.Link(l)
		require.NoError(t, err)
	}
	require.Len(t, collector.Linked(), 3)

	changed, err := p.RemoveInstance(collector)
	require.NoError(t, err)
	assert.Equal(t, []string{"cam", "door"}, changed)

	assert.False(t, l1.IsLinked())
	assert.Equal(t, []*PluginInstance{l2, l3}, l1.Linked())
	assert.Same(t, l1, l2.Collector())
	assert.Same(t, l1, l3.Collector())
	assert.Empty(t, collector.Linked())
	assert.Len(t, p.Instances(), 2)

	assert.Equal(t, []any{[]any{"cam", "l2"}, []any{"cam", "l3"}}, l1.Config().Value()[KeyLinkedInstances])
}

func TestPipeline_RemoveLinkedOnlyDetachesIt(t *testing.T) {
	n := NewNode(testNode)
	p := newPipeline(t, n, "cam")

	collector, _ := p.Attach(linkable("c"), true)
	l1, _ := p.Attach(linkable("l1"), true)
	l2, _ := p.Attach(linkable("l2"), true)
	_, _ = collector.Link(l1)
	_, _ = collector.Link(l2)

	changed, err := p.RemoveInstance(l1)
	require.NoError(t, err)
	assert.Equal(t, []string{"cam"}, changed)
	assert.Equal(t, []*PluginInstance{l2}, collector.Linked())
	assert.Same(t, collector, l2.Collector())
	assert.Nil(t, l1.Collector())

	_, err = p.RemoveInstance(l1)
	assert.True(t, errors.Is(err, errors.ErrInstanceNotFound))
}

func TestPipeline_RemovePlainInstance(t *testing.T) {
	n := NewNode(testNode)
	p := newPipeline(t, n, "cam")
	inst, _ := p.Attach(NewPluginInstance("SIG", "i1", nil), false)

	changed, err := p.RemoveInstance(inst)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, p.PendingWatches())
}

func TestInstance_LinkRules(t *testing.T) {
	a := linkable("a")
	b := linkable("b")
	c := linkable("c")
	other := NewPluginInstance("OTHER", "o", nil, WithLinkable(true))
	plain := NewPluginInstance(linkSig, "p", nil)

	_, err := a.Link(other)
	assert.True(t, errors.Is(err, errors.ErrNotLinkable))
	_, err = a.Link(plain)
	assert.True(t, errors.Is(err, errors.ErrNotLinkable))
	_, err = a.Link(a)
	assert.True(t, errors.Is(err, errors.ErrNotLinkable))

	_, err = a.Link(b)
	require.NoError(t, err)
	_, err = c.Link(b)
	assert.True(t, errors.Is(err, errors.ErrAlreadyLinked))
	_, err = b.Link(c)
	assert.True(t, errors.Is(err, errors.ErrAlreadyLinked), "linked instance cannot collect")

	_, err = a.Unlink(b)
	require.NoError(t, err)
	assert.False(t, a.IsCollector())
	_, err = a.Unlink(b)
	assert.True(t, errors.Is(err, errors.ErrInstanceNotFound))
}

func TestInstance_Mutators(t *testing.T) {
	inst := NewPluginInstance("SIG", "i1", map[string]any{})

	inst.SetTag("zone", "north")
	inst.SetTag("camera", "1")
	inst.SetTag("zone", "south")
	assert.Equal(t, []message.Tag{{Key: "zone", Value: "south"}, {Key: "camera", Value: "1"}}, inst.Tags().Entries())
	inst.RemoveTag("camera")
	inst.RemoveTag("missing")
	assert.Equal(t, 1, inst.Tags().Len())

	s, err := ParseSchedule([][2]string{{"08:00", "12:00"}})
	require.NoError(t, err)
	inst.SetSchedule(s)
	inst.SetForcePaused(true)

	reg := schema.DefaultRegistry()
	delta := inst.Delta(reg)
	require.NotNil(t, delta)
	assert.Equal(t, map[string]any{
		"ID_TAGS":       map[string]any{"zone": "south"},
		"WORKING_HOURS": []any{[]any{"08:00", "12:00"}},
		"FORCED_PAUSE":  true,
	}, delta.Config)
	assert.True(t, inst.ForcePaused())

	inst.Config().Commit()
	assert.Nil(t, inst.Delta(reg))

	inst.ClearSchedule()
	assert.Nil(t, inst.Schedule())
	assert.True(t, inst.Working(time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)))
}

func TestSchedule_Contains(t *testing.T) {
	s, err := ParseSchedule([][2]string{{"08:00", "12:00"}, {"22:00", "02:00"}})
	require.NoError(t, err)

	at := func(h, m int) time.Time { return time.Date(2024, 5, 1, h, m, 0, 0, time.UTC) }
	assert.True(t, s.Contains(at(8, 0)))
	assert.True(t, s.Contains(at(11, 59)))
	assert.False(t, s.Contains(at(12, 0)))
	assert.True(t, s.Contains(at(23, 30)))
	assert.True(t, s.Contains(at(1, 0)))
	assert.False(t, s.Contains(at(3, 0)))

	_, err = ParseSchedule([][2]string{{"8h", "12:00"}})
	assert.True(t, errors.IsInvalid(err))

	parsed, err := ScheduleFromWire(s.Wire())
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestNode_RemovePipeline(t *testing.T) {
	n := NewNode(testNode)
	newPipeline(t, n, "cam")

	_, err := n.CreatePipeline(NewDataCaptureThread("cam", "VOID", testInitiator, nil))
	assert.True(t, errors.Is(err, errors.ErrPipelineExists))

	_, err = n.RemovePipeline("missing")
	assert.True(t, errors.Is(err, errors.ErrPipelineNotFound))

	removed, err := n.RemovePipeline("cam")
	require.NoError(t, err)
	assert.Equal(t, "cam", removed.ID())
	assert.Nil(t, n.Pipeline("cam"))
	assert.Nil(t, n.DCT("cam"))
	assert.Empty(t, n.Pipelines())
}

func TestNode_Reconcile(t *testing.T) {
	n := NewNode(testNode)
	reg := schema.DefaultRegistry()

	hb := &message.Heartbeat{
		Envelope: message.Envelope{Sender: testNode},
		DCTs: []message.DCTStats{
			{ID: "cam", Type: schema.DCTVideoStream, Initiator: testInitiator, Config: map[string]any{"URL": "rtsp://cam"}},
			{ID: "foreign", Type: schema.DCTVideoStream, Initiator: "client-b"},
		},
		ActivePlugins: []message.ActivePlugin{
			{StreamID: "cam", Signature: linkSig, InstanceID: "c", Config: map[string]any{
				"LINKED_INSTANCES": []any{[]any{"cam", "l"}},
			}},
			{StreamID: "cam", Signature: linkSig, InstanceID: "l", Tags: []message.Tag{{Key: "k", Value: "v"}}},
			{StreamID: "foreign", Signature: "SIG", InstanceID: "x"},
		},
	}

	res := n.Reconcile(hb, testInitiator, reg, nil)
	assert.Equal(t, []string{"cam"}, res.NewPipelines)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Attached)
	assert.Equal(t, 1, res.Dropped)

	p := n.Pipeline("cam")
	require.NotNil(t, p)
	assert.Equal(t, "rtsp://cam", p.DCT().Config["url"])
	assert.Nil(t, n.Pipeline("foreign"))
	assert.Empty(t, p.PendingWatches())

	collector := p.Instance(linkSig, "c")
	linked := p.Instance(linkSig, "l")
	require.NotNil(t, collector)
	assert.Same(t, collector, linked.Collector())
	assert.False(t, collector.Config().HasChanges())
	v, _ := linked.Tags().Get("k")
	assert.Equal(t, "v", v)

	hb.DCTs[0].Rate = message.Rate{Actual: 10}
	res = n.Reconcile(hb, testInitiator, reg, nil)
	assert.Empty(t, res.NewPipelines)
	assert.Equal(t, 2, res.Refreshed)
	assert.Same(t, collector, p.Instance(linkSig, "c"))
	assert.Equal(t, 10.0, p.DCT().Rate.Actual)
	assert.Len(t, collector.Linked(), 1)
	assert.Same(t, collector, n.Instance(linked.Path()).Collector())
}

func TestPipeline_Compile(t *testing.T) {
	n := NewNode(testNode)
	p := newPipeline(t, n, "cam")
	p.Attach(NewPluginInstance(schema.SignatureViewScene, "v1", map[string]any{"processDelay": 2}), false)
	p.Attach(linkable("a1"), false)
	p.Attach(NewPluginInstance(schema.SignatureViewScene, "v2", nil), false)

	cfg := p.Compile(schema.DefaultRegistry())
	assert.Equal(t, "cam", cfg.Name)
	assert.Equal(t, schema.DCTVideoStream, cfg.Type)
	assert.Equal(t, "rtsp://x", cfg.Config["URL"])
	require.Len(t, cfg.Plugins, 2)
	assert.Equal(t, schema.SignatureViewScene, cfg.Plugins[0].Signature)
	require.Len(t, cfg.Plugins[0].Instances, 2)
	assert.Equal(t, 2, cfg.Plugins[0].Instances[0].Config["PROCESS_DELAY"])
	assert.Equal(t, 10, cfg.Plugins[0].Instances[1].Config["PROCESS_DELAY"])
	assert.Equal(t, linkSig, cfg.Plugins[1].Signature)
}

func TestUniverseAndFleet(t *testing.T) {
	u := NewUniverse(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u.SetClock(func() time.Time { return now })

	assert.True(t, u.Seen("a", now.Add(-2*time.Minute)))
	assert.False(t, u.Seen("a", now.Add(-3*time.Minute)))
	assert.True(t, u.Seen("b", time.Time{}))

	assert.False(t, u.Online("a"))
	assert.True(t, u.Online("b"))
	assert.False(t, u.Online("c"))
	assert.True(t, u.Known("a"))

	nodes := u.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].ID)
	assert.Equal(t, now.Add(-2*time.Minute), nodes[0].LastSeen)
	assert.False(t, nodes[0].Online)

	f := NewFleet("b", "a")
	assert.Equal(t, []string{"a", "b"}, f.List())
	f.Remove("a")
	f.Add("c")
	assert.False(t, f.Contains("a"))
	assert.True(t, f.Contains("c"))
}
