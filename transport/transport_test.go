package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiXpand/tsclient-sub000/codec"
	"github.com/AiXpand/tsclient-sub000/config"
	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/AiXpand/tsclient-sub000/natsclient"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu         sync.Mutex
	handlers   map[string]natsclient.Handler
	published  []published
	publishErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string]natsclient.Handler)}
}

func (f *fakeConn) Subscribe(_ context.Context, subject string, h natsclient.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[subject] = h
	return nil
}

func (f *fakeConn) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{subject, data})
	return nil
}

func (f *fakeConn) deliver(subject string, data []byte) {
	f.mu.Lock()
	h := f.handlers[subject]
	f.mu.Unlock()
	h(context.Background(), subject, data)
}

func topics() config.TopicsConfig {
	return config.Defaults().Topics
}

func TestStart_SubscribesAndDecodes(t *testing.T) {
	conn := newFakeConn()
	registry := metric.NewMetricsRegistry()
	tr := New(conn, topics(), WithMetrics(registry.CoreMetrics()))

	var got []message.Event
	require.NoError(t, tr.Start(context.Background(), func(_ context.Context, ev message.Event) {
		got = append(got, ev)
	}))
	assert.Len(t, conn.handlers, 3)

	err := tr.Start(context.Background(), func(context.Context, message.Event) {})
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	data, err := codec.EncodeEvent(&message.Notification{
		Envelope:         message.Envelope{Sender: "gts-1"},
		Path:             message.PipelinePath("gts-1", "cam"),
		NotificationType: message.NotificationNormal,
		Code:             message.PipelineOK,
	})
	require.NoError(t, err)

	conn.deliver("aixp.notifications", data)
	conn.deliver("aixp.payloads", []byte(`not json`))

	require.Len(t, got, 1)
	n, ok := got[0].(*message.Notification)
	require.True(t, ok)
	assert.Equal(t, message.PipelineOK, n.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		registry.CoreMetrics().DecodeErrors.WithLabelValues("aixp.payloads")))
}

func TestStart_SharedSubject(t *testing.T) {
	conn := newFakeConn()
	tr := New(conn, config.TopicsConfig{
		Heartbeats:    "aixp.events",
		Notifications: "aixp.events",
		Payloads:      "aixp.events",
		Commands:      "aixp.commands.{node}",
	})
	require.NoError(t, tr.Start(context.Background(), func(context.Context, message.Event) {}))
	assert.Len(t, conn.handlers, 1)
}

func TestSend(t *testing.T) {
	conn := newFakeConn()
	registry := metric.NewMetricsRegistry()
	tr := New(conn, topics(), WithMetrics(registry.CoreMetrics()))

	cmd := &message.Command{
		Action:    message.ActionArchiveConfig,
		Payload:   &message.ArchiveConfig{Name: "cam"},
		Initiator: "ops",
		SessionID: "s-1",
	}
	require.NoError(t, tr.Send(context.Background(), "gts-1", cmd))

	require.Len(t, conn.published, 1)
	assert.Equal(t, "aixp.commands.gts-1", conn.published[0].subject)

	node, decoded, payload, err := codec.DecodeCommand(conn.published[0].data)
	require.NoError(t, err)
	assert.Equal(t, "gts-1", node)
	assert.Equal(t, message.ActionArchiveConfig, decoded.Action)
	assert.Equal(t, map[string]any{"NAME": "cam"}, payload)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		registry.CoreMetrics().CommandsPublished.WithLabelValues(string(message.ActionArchiveConfig))))
}

func TestSend_Errors(t *testing.T) {
	conn := newFakeConn()
	tr := New(conn, topics())

	err := tr.Send(context.Background(), "gts-1", nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	conn.publishErr = errors.WrapTransient(natsclient.ErrNotConnected, "Client", "Publish", "publish")
	err = tr.Send(context.Background(), "gts-1", &message.Command{Action: message.ActionRestart, Payload: &message.EngineCommand{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, natsclient.ErrNotConnected)
	assert.True(t, errors.IsTransient(err))
}

func TestSend_RateLimitedPerNode(t *testing.T) {
	conn := newFakeConn()
	tr := New(conn, topics(), WithRateLimit(1, 1))

	cmd := &message.Command{Action: message.ActionRestart, Payload: &message.EngineCommand{}}
	require.NoError(t, tr.Send(context.Background(), "gts-1", cmd))

	// the bucket of gts-1 is empty now; gts-2 has its own
	require.NoError(t, tr.Send(context.Background(), "gts-2", cmd))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tr.Send(ctx, "gts-1", cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRateLimited)
	assert.True(t, errors.IsTransient(err))

	assert.Len(t, conn.published, 2)
}

func TestWithRateLimit_Disabled(t *testing.T) {
	tr := New(newFakeConn(), topics(), WithRateLimit(0, 0))
	cmd := &message.Command{Action: message.ActionStop, Payload: &message.EngineCommand{}}
	for i := 0; i < 50; i++ {
		require.NoError(t, tr.Send(context.Background(), "gts-1", cmd))
	}
}
