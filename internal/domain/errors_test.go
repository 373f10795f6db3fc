package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodUnavailableError(t *testing.T) {
	tests := []struct {
		name    string
		method  Method
		reason  string
		err     error
		wantMsg string
	}{
		{
			name:    "with underlying error",
			method:  MethodB,
			reason:  "timeout",
			err:     errors.New("context deadline exceeded"),
			wantMsg: "method method_b unavailable: timeout: context deadline exceeded",
		},
		{
			name:    "reason only",
			method:  MethodD,
			reason:  "missing credential",
			wantMsg: "method method_d unavailable: missing credential",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMethodUnavailableError(tt.method, tt.reason, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, errors.Is(err, ErrMethodUnavailable))
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "Should unwrap to underlying error")
			}
		})
	}
}

func TestNoCandidatesError(t *testing.T) {
	failures := map[Method]*MethodUnavailableError{
		MethodD: NewMethodUnavailableError(MethodD, "error", errors.New("quota exhausted")),
		MethodA: NewMethodUnavailableError(MethodA, "timeout", nil),
		MethodC: NewMethodUnavailableError(MethodC, "missing credential", nil),
		MethodB: NewMethodUnavailableError(MethodB, "error", errors.New("503")),
	}

	err := NewNoCandidatesError(failures)
	wrapped := fmt.Errorf("round r1: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNoCandidates))

	var target *NoCandidatesError
	require.True(t, errors.As(wrapped, &target))
	assert.Len(t, target.Reasons(), 4)

	msg := err.Error()
	assert.Contains(t, msg, "4 method(s) failed")
	// Reasons are listed in priority order regardless of map iteration.
	assert.Less(t, indexOf(msg, "method_a"), indexOf(msg, "method_b"))
	assert.Less(t, indexOf(msg, "method_b"), indexOf(msg, "method_c"))
	assert.Less(t, indexOf(msg, "method_c"), indexOf(msg, "method_d"))

	// Mutating the caller's map must not change the error.
	delete(failures, MethodA)
	assert.Len(t, err.Failures, 4)
}

func TestJudgeUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewJudgeUnavailableError("request failed", cause)

	assert.Equal(t, "judge unavailable: request failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, ErrJudgeUnavailable))
	assert.True(t, errors.Is(err, cause))

	bare := NewJudgeUnavailableError("no judge configured", nil)
	assert.Equal(t, "judge unavailable: no judge configured", bare.Error())
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("EngineConfig")
		err.AddError("weights must sum to 1")

		assert.Equal(t, "validation error for EngineConfig: weights must sum to 1", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("EngineConfig")
		err.AddError("unknown method")
		err.AddError("negative timeout")

		assert.Equal(t, "validation errors for EngineConfig: [unknown method negative timeout]", err.Error())
		assert.Len(t, err.Errors, 2)
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("EngineConfig")
		assert.False(t, err.HasErrors())
	})
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
