package errors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		signal string
		want   ErrorType
	}{
		{"Connection timed out after 60s", Timeout},
		{"HTTP 429 Too Many Requests", RateLimit},
		{"401 Unauthorized", Auth},
		{"ERROR: Video unavailable", Content},
		{"dial tcp: connection refused", Network},
		{"ffmpeg exited with status 2", ExternalService},
		{"", ExternalService},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.signal), c.signal)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Network))
	assert.True(t, IsRetryable(RateLimit))
	assert.False(t, IsRetryable(Auth))
	assert.False(t, IsRetryable(Content))
	assert.False(t, IsRetryable(InvalidInput))
	assert.False(t, IsRetryable(Parse))
}

func TestRateLimitBackoffNonNegativeAndCapped(t *testing.T) {
	prevHigh := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		d := RateLimitBackoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, backoffCap+backoffCap/4)
		if attempt > 0 {
			// Expected value grows until the cap; just sanity check upper bound scales.
			assert.LessOrEqual(t, prevHigh, backoffCap+backoffCap/4)
		}
		prevHigh = d
	}
}

func TestShareViolationBackoff(t *testing.T) {
	assert.Equal(t, 20*time.Millisecond, ShareViolationBackoff(0))
	assert.Equal(t, 40*time.Millisecond, ShareViolationBackoff(1))
	assert.Equal(t, 70*time.Millisecond, ShareViolationBackoff(2))
}

func TestAppErrorWrapping(t *testing.T) {
	base := assertErr("boom")
	wrapped := Wrap(Network, "fetch failed", base)
	assert.Equal(t, base, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "NETWORK")
	assert.True(t, wrapped.Retryable())
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }
