package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	ai "github.com/smartsource/agentloop"
)

// wrapError classifies an Anthropic SDK error into the runtime's taxonomy.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return ai.NewTransientError("anthropic: request failed", 0, err)
	}

	code := apiErr.StatusCode
	msg := err.Error()

	switch {
	case code == 429:
		return ai.NewRateLimitedError(msg, code, parseRetryAfter(apiErr.Response), err)
	case code == 529 || (code >= 500 && code < 600):
		// 529 is the Anthropic overloaded status
		return ai.NewTransientError(msg, code, err)
	case code == 400 || code == 401 || code == 403 || code == 404 || code == 422:
		return ai.NewPermanentError(msg, code, err)
	default:
		return ai.NewUnknownError(msg, code, err)
	}
}

// parseRetryAfter extracts the Retry-After duration from an HTTP response.
// Returns 0 if the header is not present or cannot be parsed.
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return 0
}
