package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrorTypeTimeout},
		{"canceled", context.Canceled, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"401 status", errors.New("API returned 401 Unauthorized"), ErrorTypeAuth},
		{"403 status", errors.New("got 403 from upstream"), ErrorTypeAuth},
		{"429 status", errors.New("status 429 too many requests"), ErrorTypeRateLimit},
		{"400 status", errors.New("request failed with 400"), ErrorTypeBadPrompt},
		{"500 status", errors.New("upstream 500 internal server error"), ErrorTypeTransient},
		{"503 status", errors.New("503 service unavailable"), ErrorTypeTransient},
		{"timeout text", errors.New("i/o timeout on read"), ErrorTypeTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{"eof", errors.New("unexpected EOF"), ErrorTypeTransient},
		{"quota text", errors.New("monthly quota exhausted"), ErrorTypeRateLimit},
		{"api key text", errors.New("missing api key"), ErrorTypeAuth},
		{"invalid request text", errors.New("invalid model parameter"), ErrorTypeBadPrompt},
		{"unclassified", errors.New("something odd happened"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Type, "classified as %s", got.Type)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestExtractStatusCode(t *testing.T) {
	assert.Equal(t, 429, ExtractStatusCode("got 429 from server"))
	assert.Equal(t, 0, ExtractStatusCode("no code here"))
	assert.Equal(t, 0, ExtractStatusCode("value 42 is not a status"))
}

func TestIsAndTypeOf(t *testing.T) {
	err := NewError(ErrorTypeRateLimit, "slow down")

	assert.True(t, Is(err, ErrorTypeRateLimit))
	assert.False(t, Is(err, ErrorTypeTimeout))
	assert.Equal(t, ErrorTypeRateLimit, TypeOf(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, Is(wrapped, ErrorTypeRateLimit))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, NewError(ErrorTypeTimeout, "").IsRetryable())
	assert.True(t, NewError(ErrorTypeRateLimit, "").IsRetryable())
	assert.True(t, NewError(ErrorTypeTransient, "").IsRetryable())
	assert.False(t, NewError(ErrorTypeAuth, "").IsRetryable())
	assert.False(t, NewError(ErrorTypeBadPrompt, "").IsRetryable())
}

func TestErrorString(t *testing.T) {
	withMessage := NewError(ErrorTypeTimeout, "took too long")
	assert.Contains(t, withMessage.Error(), "timeout")
	assert.Contains(t, withMessage.Error(), "took too long")

	withCause := NewErrorWithCause(ErrorTypeTransient, errors.New("reset by peer"), "")
	assert.Contains(t, withCause.Error(), "reset by peer")
	assert.Equal(t, "reset by peer", withCause.Unwrap().Error())
}
