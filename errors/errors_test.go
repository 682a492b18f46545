package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"circuit open", ErrCircuitOpen, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"timeout in text", fmt.Errorf("publish timeout"), true},
		{"identity mismatch", ErrDCTIdentityMismatch, false},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("x")}, true},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("timeout")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestIsInvalid_DomainSentinels(t *testing.T) {
	for _, err := range []error{
		ErrDCTIdentityMismatch,
		ErrPipelineNotFound,
		ErrEngineNotInFleet,
		ErrUnknownEventType,
		fmt.Errorf("wrapped: %w", ErrPipelineNotFound),
	} {
		assert.True(t, IsInvalid(err), err.Error())
		assert.Equal(t, ErrorInvalid, Classify(err))
	}
	assert.False(t, IsInvalid(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrInvalidConfig))
	assert.True(t, IsFatal(WrapFatal(errors.New("boom"), "Loader", "Load", "read")))
	assert.False(t, IsFatal(ErrConnectionLost))
	assert.False(t, IsFatal(nil))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrPipelineNotFound, "Node", "RemovePipeline", "lookup pipeline")
	require.Error(t, err)
	assert.Equal(t, "Node.RemovePipeline: lookup pipeline failed: pipeline not found", err.Error())
	assert.True(t, errors.Is(err, ErrPipelineNotFound))
	assert.Nil(t, Wrap(nil, "a", "b", "c"))
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := errors.New("cause")
			err := tt.wrap(base, "Transport", "Send", "publish")

			var ce *ClassifiedError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "Transport", ce.Component)
			assert.Equal(t, "Send", ce.Operation)
			assert.True(t, errors.Is(err, base))
			assert.Contains(t, err.Error(), "Transport.Send: publish failed")

			assert.Nil(t, tt.wrap(nil, "a", "b", "c"))
		})
	}
}

func TestClassificationSurvivesWrap(t *testing.T) {
	inner := WrapInvalid(ErrDCTIdentityMismatch, "DataCaptureThread", "Update", "compare ids")
	outer := fmt.Errorf("heartbeat: %w", inner)

	assert.True(t, IsInvalid(outer))
	assert.False(t, IsTransient(outer))
	assert.True(t, errors.Is(outer, ErrDCTIdentityMismatch))
}

func TestClassifiedError_NoMessage(t *testing.T) {
	ce := &ClassifiedError{Class: ErrorFatal, Err: errors.New("underlying")}
	assert.Equal(t, "underlying", ce.Error())
}
