package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/metric"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("nats://a:4222, nats://b:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://a:4222,nats://b:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())
	assert.Nil(t, c.Connection())

	_, err = NewClient(" , ")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewClient_OptionError(t *testing.T) {
	_, err := NewClient("nats://localhost:4222", WithTLS("cert.pem", "", ""))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestConnectionStatus_String(t *testing.T) {
	tests := map[ConnectionStatus]string{
		StatusDisconnected:    "disconnected",
		StatusConnecting:      "connecting",
		StatusConnected:       "connected",
		StatusReconnecting:    "reconnecting",
		StatusCircuitOpen:     "circuit_open",
		ConnectionStatus(99): "unknown",
	}
	for status, want := range tests {
		assert.Equal(t, want, status.String())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	c, err := NewClient("nats://invalid:4222", WithCircuitBreakerThreshold(3))
	require.NoError(t, err)

	c.recordFailure()
	c.recordFailure()
	assert.NotEqual(t, StatusCircuitOpen, c.Status())

	c.recordFailure()
	assert.Equal(t, StatusCircuitOpen, c.Status())
	assert.Equal(t, int32(3), c.Failures())
	assert.Equal(t, 2*time.Second, c.Backoff())

	// another full round while open doubles again
	for i := 0; i < 3; i++ {
		c.recordFailure()
	}
	assert.Equal(t, 4*time.Second, c.Backoff())

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCircuitOpen)
	assert.True(t, errors.IsTransient(err))
}

func TestCircuitBreaker_BackoffCapped(t *testing.T) {
	c, err := NewClient("nats://invalid:4222",
		WithCircuitBreakerThreshold(1),
		WithMaxBackoff(3*time.Second))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		c.recordFailure()
	}
	assert.Equal(t, 3*time.Second, c.Backoff())
}

func TestCircuitBreaker_ResetAndHalfOpen(t *testing.T) {
	c, err := NewClient("nats://invalid:4222", WithCircuitBreakerThreshold(1))
	require.NoError(t, err)

	c.recordFailure()
	require.Equal(t, StatusCircuitOpen, c.Status())

	c.halfOpen()
	assert.Equal(t, StatusDisconnected, c.Status())

	c.recordFailure()
	require.Equal(t, StatusCircuitOpen, c.Status())
	c.resetCircuit()
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, int32(0), c.Failures())
	assert.Equal(t, time.Second, c.Backoff())
}

func TestConnect_FailureCountsTowardsCircuit(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(100*time.Millisecond),
		WithMaxReconnects(0),
		WithCircuitBreakerThreshold(2),
		WithLogger(NewSlogLogger(nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, c.Status())

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCircuitOpen)
	assert.Equal(t, StatusCircuitOpen, c.Status())
}

func TestNotConnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx := context.Background()

	err = c.Publish(ctx, "a.b", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)

	err = c.Subscribe(ctx, "a.b", func(context.Context, string, []byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, c.Flush(ctx), ErrNotConnected)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitForConnection(waitCtx), errors.ErrConnectionTimeout)
}

func TestClose_Idempotent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222", WithCredentials("user", "secret"), WithToken("tok"))
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Empty(t, c.password)
	assert.Empty(t, c.token)

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
}

func TestConnectionOptions(t *testing.T) {
	base, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	full, err := NewClient("nats://localhost:4222",
		WithCredentials("user", "pass"),
		WithToken("token"),
		WithTLS("cert.pem", "key.pem", "ca.pem"),
		WithName("tsclient"))
	require.NoError(t, err)

	// credentials, token, client cert, root CAs and name
	assert.Len(t, full.ConnectionOptions(), len(base.ConnectionOptions())+5)
}

func TestStatusMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m := registry.CoreMetrics()

	c, err := NewClient("nats://localhost:4222",
		WithMetrics(m),
		WithCircuitBreakerThreshold(1))
	require.NoError(t, err)

	c.setStatus(StatusConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))

	c.recordFailure()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSCircuitBreaker))

	c.handleReconnect(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSReconnects))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSCircuitBreaker))
	assert.Equal(t, int32(1), c.GetStatus().Reconnects)
}

func TestCallbacks(t *testing.T) {
	var mu sync.Mutex
	var health []bool
	reconnected := make(chan struct{}, 1)

	c, err := NewClient("nats://localhost:4222",
		WithHealthChangeCallback(func(h bool) {
			mu.Lock()
			defer mu.Unlock()
			health = append(health, h)
		}),
		WithReconnectCallback(func() { reconnected <- struct{}{} }))
	require.NoError(t, err)

	c.handleDisconnect(nil, nil)
	assert.Equal(t, StatusReconnecting, c.Status())

	c.handleReconnect(nil)
	assert.Equal(t, StatusConnected, c.Status())

	select {
	case <-reconnected:
	case <-time.After(time.Second):
		t.Fatal("reconnect callback not called")
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(health) == 2
	}, time.Second, 5*time.Millisecond)
}
