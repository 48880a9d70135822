package errors

import (
	"math/rand"
	"strings"
	"time"
)

// signalRule pairs a set of substrings observed in upstream stderr/exit
// output with the ErrorType they map to. Rules are checked in order; the
// first match wins, so more specific signals (rate limit, auth) are listed
// before the generic network bucket.
type signalRule struct {
	t        ErrorType
	contains []string
}

var classificationTable = []signalRule{
	{Timeout, []string{"timeout", "timed out"}},
	{RateLimit, []string{"429", "rate limit", "too many requests"}},
	{Auth, []string{"401", "403", "unauthorized"}},
	{Content, []string{"404", "not found", "unavailable", "private", "deleted", "removed", "blocked", "region", "copyright"}},
	{Network, []string{"network", "connection", "dns", "refused", "reset", "unreachable", "failed to connect"}},
}

// Classify maps a signal string (typically combined stderr+exit output from
// an external tool, or an HTTP error body) to an ErrorType per the §4.10
// mapping policy. A non-zero exit with no recognized signal classifies as
// EXTERNAL_SERVICE; callers that already know the failure is a JSON decode
// or OS file error should use ParseErr/FileIOErr directly instead of this
// generic classifier.
func Classify(signal string) ErrorType {
	lower := strings.ToLower(signal)
	for _, rule := range classificationTable {
		for _, s := range rule.contains {
			if strings.Contains(lower, s) {
				return rule.t
			}
		}
	}
	return ExternalService
}

// ClassifyExternal classifies a subprocess/HTTP failure, folding in the
// "any other non-zero exit" and "anything else" fallback tiers from §4.10:
// a non-nil err with no recognized signal in its combined text still
// becomes EXTERNAL_SERVICE (a tool ran and failed); a nil err is not
// expected to reach this function.
func ClassifyExternal(combinedOutput string, err error) *AppError {
	t := Classify(combinedOutput)
	msg := combinedOutput
	if msg == "" && err != nil {
		msg = err.Error()
		t = Classify(msg)
	}
	return Wrap(t, msg, err)
}

// Backoff parameters for RATE_LIMIT retries (§4.10): exponential with base
// 1s, factor 2, jitter ±25%, capped at 60s.
const (
	backoffBase   = time.Second
	backoffFactor = 2.0
	backoffCap    = 60 * time.Second
	backoffJitter = 0.25
)

// RateLimitBackoff returns the sleep duration before the (attempt+1)-th
// retry of a rate-limited call, attempt starting at 0. The jitter is
// symmetric around the exponential value and the result is never negative.
func RateLimitBackoff(attempt int) time.Duration {
	d := float64(backoffBase)
	for i := 0; i < attempt; i++ {
		d *= backoffFactor
	}
	if d > float64(backoffCap) {
		d = float64(backoffCap)
	}
	jitter := (rand.Float64()*2 - 1) * backoffJitter * d
	result := time.Duration(d + jitter)
	if result < 0 {
		result = 0
	}
	return result
}

// ShareViolationBackoff returns the sleep duration before the (attempt+1)-th
// retry of an atomic file read/write that failed with a sharing violation
// (§4.1): 2^attempt * 10ms + (attempt+1) * 10ms, attempt starting at 0.
func ShareViolationBackoff(attempt int) time.Duration {
	pow := 1 << uint(attempt)
	return time.Duration(pow)*10*time.Millisecond + time.Duration(attempt+1)*10*time.Millisecond
}

// MaxShareViolationAttempts is the retry ceiling for atomic file IO
// sharing-violation retries (§4.1).
const MaxShareViolationAttempts = 5
