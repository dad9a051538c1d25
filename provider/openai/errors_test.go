package openai

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ai "github.com/smartsource/agentloop"
)

func TestCategorizeStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want ai.ErrorCategory
	}{
		{429, ai.ErrorRateLimited},
		{500, ai.ErrorTransient},
		{502, ai.ErrorTransient},
		{503, ai.ErrorTransient},
		{599, ai.ErrorTransient},
		{400, ai.ErrorPermanent},
		{401, ai.ErrorPermanent},
		{403, ai.ErrorPermanent},
		{404, ai.ErrorPermanent},
		{422, ai.ErrorPermanent},
		{418, ai.ErrorUnknown},
		{200, ai.ErrorUnknown},
		{0, ai.ErrorUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeStatusCode(tt.code), "status %d", tt.code)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Run("seconds", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
		assert.Equal(t, 30*time.Second, parseRetryAfter(resp))
	})

	t.Run("http date", func(t *testing.T) {
		future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
		resp := &http.Response{Header: http.Header{"Retry-After": []string{future}}}

		delay := parseRetryAfter(resp)
		assert.Greater(t, delay, 50*time.Second)
		assert.LessOrEqual(t, delay, time.Minute)
	})

	t.Run("past http date", func(t *testing.T) {
		past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
		resp := &http.Response{Header: http.Header{"Retry-After": []string{past}}}
		assert.Zero(t, parseRetryAfter(resp))
	})

	t.Run("missing header", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		assert.Zero(t, parseRetryAfter(resp))
	})

	t.Run("nil response", func(t *testing.T) {
		assert.Zero(t, parseRetryAfter(nil))
	})

	t.Run("garbage value", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"soon"}}}
		assert.Zero(t, parseRetryAfter(resp))
	})
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, wrapError(nil))
}
