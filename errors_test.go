package agentloop

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	cause := errors.New("underlying")

	t.Run("rate limited", func(t *testing.T) {
		err := NewRateLimitedError("too many requests", 429, 30*time.Second, cause)
		assert.Equal(t, ErrorRateLimited, err.Category())
		assert.True(t, err.Retryable())
		assert.Equal(t, 429, err.StatusCode())
		assert.Equal(t, 30*time.Second, err.RetryAfter())
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("transient", func(t *testing.T) {
		err := NewTransientError("server overloaded", 503, nil)
		assert.Equal(t, ErrorTransient, err.Category())
		assert.True(t, err.Retryable())
		assert.Zero(t, err.RetryAfter())
	})

	t.Run("permanent", func(t *testing.T) {
		err := NewPermanentError("invalid api key", 401, nil)
		assert.Equal(t, ErrorPermanent, err.Category())
		assert.False(t, err.Retryable())
	})

	t.Run("unknown", func(t *testing.T) {
		err := NewUnknownError("odd response", 418, nil)
		assert.Equal(t, ErrorUnknown, err.Category())
		assert.False(t, err.Retryable())
	})
}

func TestErrorMessage(t *testing.T) {
	withCause := NewTransientError("request failed", 0, errors.New("connection reset"))
	assert.Equal(t, "request failed: connection reset", withCause.Error())

	withoutCause := NewTransientError("request failed", 0, nil)
	assert.Equal(t, "request failed", withoutCause.Error())
}

func TestCategoryHelpers(t *testing.T) {
	rateLimited := NewRateLimitedError("throttled", 429, 5*time.Second, nil)
	transient := NewTransientError("overloaded", 503, nil)
	permanent := NewPermanentError("forbidden", 403, nil)
	plain := errors.New("plain")

	assert.True(t, IsRetryable(rateLimited))
	assert.True(t, IsRetryable(transient))
	assert.False(t, IsRetryable(permanent))
	assert.False(t, IsRetryable(plain))
	assert.False(t, IsRetryable(nil))

	assert.True(t, IsRateLimited(rateLimited))
	assert.False(t, IsRateLimited(transient))

	assert.True(t, IsTransient(transient))
	assert.False(t, IsTransient(rateLimited))

	assert.True(t, IsPermanent(permanent))
	assert.False(t, IsPermanent(transient))

	assert.Equal(t, 429, StatusCodeOf(rateLimited))
	assert.Equal(t, 0, StatusCodeOf(plain))

	assert.Equal(t, 5*time.Second, RetryAfterOf(rateLimited))
	assert.Zero(t, RetryAfterOf(plain))
}

func TestCategoryHelpersSeeThroughWrapping(t *testing.T) {
	inner := NewTransientError("overloaded", 503, nil)
	wrapped := fmt.Errorf("gateway: %w", inner)

	assert.True(t, IsRetryable(wrapped))
	assert.True(t, IsTransient(wrapped))
	assert.Equal(t, 503, StatusCodeOf(wrapped))
}

func TestModelNotAvailableError(t *testing.T) {
	err := &ModelNotAvailableError{Model: "gpt-9", Reason: "no deployment configured"}

	assert.Equal(t, `model "gpt-9" is not available: no deployment configured`, err.Error())
	assert.Equal(t, ErrorPermanent, err.Category())
	assert.False(t, err.Retryable())
	assert.Zero(t, err.StatusCode())
	assert.Zero(t, err.RetryAfter())

	// Detectable through the categorized interface like any other error
	assert.True(t, IsPermanent(err))
	assert.False(t, IsRetryable(err))

	var target *ModelNotAvailableError
	require.True(t, errors.As(error(err), &target))

	bare := &ModelNotAvailableError{Model: "gpt-9"}
	assert.Equal(t, `model "gpt-9" is not available`, bare.Error())
}
