package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		subs    []Status
		want    State
		message string
	}{
		{
			name:    "empty",
			want:    StateHealthy,
			message: "no components",
		},
		{
			name: "all healthy",
			subs: []Status{NewHealthy("nats", "ok"), NewHealthy("client", "ok")},
			want: StateHealthy,
		},
		{
			name:    "degraded wins over healthy",
			subs:    []Status{NewHealthy("nats", "ok"), NewDegraded("fleet", "gts-2 offline")},
			want:    StateDegraded,
			message: "degraded: fleet",
		},
		{
			name: "unhealthy wins over degraded",
			subs: []Status{
				NewDegraded("fleet", "gts-2 offline"),
				NewUnhealthy("nats", "disconnected"),
				NewUnhealthy("buffer", "redis down"),
			},
			want:    StateUnhealthy,
			message: "unhealthy: nats, buffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("edgectl", tt.subs)
			assert.Equal(t, "edgectl", got.Component)
			assert.Equal(t, tt.want, got.State)
			assert.Len(t, got.SubStatuses, len(tt.subs))
			if tt.message != "" {
				assert.Equal(t, tt.message, got.Message)
			}
		})
	}
}

func TestStatus_Err(t *testing.T) {
	assert.NoError(t, NewHealthy("nats", "ok").Err())
	assert.NoError(t, NewDegraded("nats", "slow").Err())

	err := NewUnhealthy("nats", "disconnected").Err()
	require.Error(t, err)
	assert.Equal(t, "nats unhealthy: disconnected", err.Error())

	var ue *UnhealthyError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "nats", ue.Component)
}

func TestStatus_WithSubStatusCopies(t *testing.T) {
	base := NewHealthy("client", "ok").WithSubStatus(NewHealthy("a", "ok"))
	one := base.WithSubStatus(NewHealthy("b", "ok"))
	two := base.WithSubStatus(NewHealthy("c", "ok"))

	assert.Len(t, base.SubStatuses, 1)
	assert.Equal(t, "b", one.SubStatuses[1].Component)
	assert.Equal(t, "c", two.SubStatuses[1].Component)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"dial nats://user:pw@10.0.0.1:4222 failed", "dial [URL] failed"},
		{"connect 10.0.0.5:6379 refused", "connect [IP] refused"},
		{"open /etc/aixp/config.yaml: denied", "open [PATH]: denied"},
		{"auth failed password=hunter2", "auth failed password=[REDACTED]"},
		{"nothing to hide", "nothing to hide"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestFromError(t *testing.T) {
	assert.True(t, FromError("redis", nil).IsHealthy())

	s := FromError("redis", assert.AnError)
	assert.True(t, s.IsUnhealthy())
	assert.Equal(t, assert.AnError.Error(), s.Message)
}

func TestMonitor(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("nats", "connected")
	m.UpdateDegraded("client", "warming up")

	calls := 0
	m.Register("client", func() Status {
		calls++
		return NewHealthy("ignored", "probed")
	})

	got, ok := m.Get("client")
	require.True(t, ok)
	assert.Equal(t, "client", got.Component)
	assert.Equal(t, "probed", got.Message)
	assert.Equal(t, 1, calls)

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, "client", all[0].Component)
	assert.Equal(t, "nats", all[1].Component)
	assert.True(t, m.Aggregate("edgectl").IsHealthy())

	m.UpdateUnhealthy("nats", "disconnected")
	assert.True(t, m.Aggregate("edgectl").IsUnhealthy())

	m.Remove("nats")
	_, ok = m.Get("nats")
	assert.False(t, ok)
}
