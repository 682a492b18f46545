//go:build integration

package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	require.True(t, tc.Client.IsHealthy())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type msg struct {
		subject string
		data    string
	}
	received := make(chan msg, 4)
	require.NoError(t, tc.Client.Subscribe(ctx, "aixp.payloads.>", func(_ context.Context, subject string, data []byte) {
		received <- msg{subject, string(data)}
	}))
	require.NoError(t, tc.Client.Flush(ctx))

	require.NoError(t, tc.Client.Publish(ctx, "aixp.payloads.gts-1", []byte(`{"a":1}`)))

	select {
	case m := <-received:
		assert.Equal(t, "aixp.payloads.gts-1", m.subject)
		assert.Equal(t, `{"a":1}`, m.data)
	case <-ctx.Done():
		t.Fatal("message not received")
	}

	status := tc.Client.GetStatus()
	assert.Equal(t, StatusConnected, status.Status)
	assert.Equal(t, 1, status.Subscriptions)

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestIntegration_SecondClient(t *testing.T) {
	tc := NewTestClient(t)

	other, err := NewClient(tc.URL, WithName("second"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, other.Connect(ctx))
	require.NoError(t, other.WaitForConnection(ctx))

	got := make(chan []byte, 1)
	require.NoError(t, other.Subscribe(ctx, "aixp.commands.gts-1", func(_ context.Context, _ string, data []byte) {
		got <- data
	}))
	require.NoError(t, other.Flush(ctx))

	require.NoError(t, tc.Client.Publish(ctx, "aixp.commands.gts-1", []byte("restart")))
	select {
	case data := <-got:
		assert.Equal(t, "restart", string(data))
	case <-ctx.Done():
		t.Fatal("command not received")
	}

	require.NoError(t, other.Close(ctx))
	assert.Equal(t, StatusDisconnected, other.Status())
}
