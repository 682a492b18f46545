//go:build integration

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiXpand/tsclient-sub000/codec"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/natsclient"
)

func TestIntegration_RoundTrip(t *testing.T) {
	tc := natsclient.NewTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr := New(tc.Client, topics())
	events := make(chan message.Event, 4)
	require.NoError(t, tr.Start(ctx, func(_ context.Context, ev message.Event) {
		events <- ev
	}))

	// a node listens on its command subject
	commands := make(chan []byte, 1)
	require.NoError(t, tc.Client.Subscribe(ctx, "aixp.commands.gts-1", func(_ context.Context, _ string, data []byte) {
		commands <- data
	}))
	require.NoError(t, tc.Client.Flush(ctx))

	require.NoError(t, tr.Send(ctx, "gts-1", &message.Command{
		Action:  message.ActionArchiveConfig,
		Payload: &message.ArchiveConfig{Name: "cam"},
	}))

	select {
	case data := <-commands:
		node, cmd, _, err := codec.DecodeCommand(data)
		require.NoError(t, err)
		assert.Equal(t, "gts-1", node)
		assert.Equal(t, message.ActionArchiveConfig, cmd.Action)
	case <-ctx.Done():
		t.Fatal("command not received")
	}

	data, err := codec.EncodeEvent(&message.Payload{
		Envelope: message.Envelope{Sender: "gts-1"},
		Path:     message.InstancePath("gts-1", "cam", "VIEW", "v1"),
		Data:     map[string]any{"COUNT": 3.0},
	})
	require.NoError(t, err)
	require.NoError(t, tc.Client.Publish(ctx, "aixp.payloads", data))

	select {
	case ev := <-events:
		p, ok := ev.(*message.Payload)
		require.True(t, ok)
		assert.Equal(t, "v1", p.Path.Instance)
		assert.Equal(t, 3.0, p.Data["COUNT"])
	case <-ctx.Done():
		t.Fatal("payload not received")
	}
}
