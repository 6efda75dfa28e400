package scheduler

import (
	"strings"
	"time"

	"github.com/ralphcore/ralph/internal/store"
	"github.com/ralphcore/ralph/internal/tunables"
)

// ErrorClass is how a failed agent invocation or PR-create call should be
// handled by the claim loop.
type ErrorClass string

const (
	ErrorNonRetriable ErrorClass = "non-retriable"
	ErrorRateLimit    ErrorClass = "rate-limit"
	ErrorTransient    ErrorClass = "transient"
	ErrorUnknown      ErrorClass = "unknown"
)

// Classification is the result of classifying a failure.
type Classification struct {
	Class         ErrorClass
	BlockedSource store.BlockedSource
}

var nonRetriableMarkers = []string{
	"401", "403", "permission denied", "bad credentials", "unauthorized", "forbidden",
}

var rateLimitMarkers = []string{
	"rate limit", "secondary rate limit", "abuse detection",
}

var transientMarkers = []string{
	"429", "502", "503", "504", "timeout", "timed out", "econnreset", "connection reset",
	"eof", "temporary failure", "i/o timeout",
}

// Classify buckets an error's text into one of the four classes the claim
// loop reacts to. Matching is substring-based over the lowercased text,
// since agent/GitHub error strings don't carry a stable machine-readable
// code.
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	for _, m := range nonRetriableMarkers {
		if strings.Contains(lower, m) {
			return Classification{Class: ErrorNonRetriable, BlockedSource: store.BlockedAuth}
		}
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return Classification{Class: ErrorRateLimit, BlockedSource: store.BlockedRateLimit}
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(lower, m) {
			return Classification{Class: ErrorTransient}
		}
	}
	return Classification{Class: ErrorUnknown}
}

// TransientBackoff returns the delay (base*2^attempt, capped, plus jitter)
// for the attempt'th transient retry (0-indexed).
func TransientBackoff(attempt int, jitter time.Duration) time.Duration {
	delay := tunables.TransientBackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= tunables.TransientBackoffMax {
			delay = tunables.TransientBackoffMax
			break
		}
	}
	return delay + jitter
}
