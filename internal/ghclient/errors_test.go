package ghclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
)

func errResponse(status int, message string, header http.Header) *github.ErrorResponse {
	if header == nil {
		header = http.Header{}
	}
	resp := &http.Response{StatusCode: status, Header: header}
	return &github.ErrorResponse{Response: resp, Message: message}
}

func TestClassifyNilIsNil(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("Classify(nil) should be nil")
	}
}

func TestClassifyPrimaryRateLimitFromHeaders(t *testing.T) {
	resetAt := time.Now().Add(10 * time.Minute).Unix()
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", itoa64(resetAt))
	err := errResponse(http.StatusForbidden, "API rate limit exceeded", h)

	got := Classify(err)
	if got.Code != ErrRateLimit {
		t.Fatalf("Code = %v, want rate_limit", got.Code)
	}
	if got.ResumeAtTs == nil {
		t.Fatalf("expected ResumeAtTs to be derived from X-RateLimit-Reset")
	}
	if got.ResumeAtTs.Unix() != resetAt {
		t.Fatalf("ResumeAtTs = %v, want unix %d", got.ResumeAtTs, resetAt)
	}
}

func TestClassifySecondaryRateLimitFromBodyTimestamp(t *testing.T) {
	err := errResponse(http.StatusForbidden, "You have exceeded a secondary rate limit, please retry after timestamp 2026-07-31 12:00:00 UTC", nil)

	got := Classify(err)
	if got.Code != ErrRateLimit {
		t.Fatalf("Code = %v, want rate_limit", got.Code)
	}
	if got.ResumeAtTs == nil {
		t.Fatalf("expected a ResumeAtTs parsed from the embedded body timestamp")
	}
	want := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	if !got.ResumeAtTs.Equal(want) {
		t.Fatalf("ResumeAtTs = %v, want %v", got.ResumeAtTs, want)
	}
}

func TestClassifyAuthVsNotFoundVsServerErrors(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusBadGateway, ErrTransient},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusTeapot, ErrUnknown},
	}
	for _, tc := range cases {
		got := Classify(errResponse(tc.status, "message", nil))
		if got.Code != tc.want {
			t.Fatalf("status %d: Code = %v, want %v", tc.status, got.Code, tc.want)
		}
	}
}

func TestClassifyNonGitHubErrorIsNetwork(t *testing.T) {
	got := Classify(errPlain("connection refused"))
	if got.Code != ErrNetwork {
		t.Fatalf("Code = %v, want network", got.Code)
	}
}

func TestDeriveRateLimitPlanNonRateLimitErrorIsNotThrottled(t *testing.T) {
	plan := DeriveRateLimitPlan(errResponse(http.StatusNotFound, "missing", nil))
	if plan.Throttled {
		t.Fatalf("expected not throttled for a 404")
	}
	if plan.Snapshot.Kind != "" {
		t.Fatalf("Snapshot.Kind = %q, want empty for a non-rate-limit plan", plan.Snapshot.Kind)
	}
}

func TestDeriveRateLimitPlanUsesResumeTimestampWhenPresent(t *testing.T) {
	resetAt := time.Now().Add(5 * time.Minute).Unix()
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", itoa64(resetAt))
	plan := DeriveRateLimitPlan(errResponse(http.StatusForbidden, "rate limit exceeded", h))
	if !plan.Throttled {
		t.Fatalf("expected throttled")
	}
	if plan.ResumeAt.Unix() != resetAt {
		t.Fatalf("ResumeAt = %v, want unix %d", plan.ResumeAt, resetAt)
	}
	if plan.Snapshot.Kind != RateLimitSnapshotKindGitHub {
		t.Fatalf("Snapshot.Kind = %q, want %q", plan.Snapshot.Kind, RateLimitSnapshotKindGitHub)
	}
}

func TestDeriveRateLimitPlanFallsBackToFixedDelayWithoutTimestamp(t *testing.T) {
	before := time.Now().UTC()
	// 429 with no X-RateLimit-Reset header: classified as rate-limited but
	// with no resume timestamp recoverable from the response.
	plan := DeriveRateLimitPlan(errResponse(http.StatusTooManyRequests, "too many requests", nil))
	if !plan.Throttled {
		t.Fatalf("expected throttled")
	}
	if !plan.ResumeAt.After(before) {
		t.Fatalf("expected a fallback ResumeAt in the future, got %v", plan.ResumeAt)
	}
	if plan.Snapshot.Kind != RateLimitSnapshotKindGitHub {
		t.Fatalf("Snapshot.Kind = %q, want %q", plan.Snapshot.Kind, RateLimitSnapshotKindGitHub)
	}
}

// TestDeriveRateLimitPlanMatchesScenarioS6 pins the exact embedded-timestamp
// scenario from spec scenario S6: a 403 body containing a secondary-rate-limit
// timestamp and no x-ratelimit-* headers resolves to that exact instant with
// a github-rate-limit snapshot.
func TestDeriveRateLimitPlanMatchesScenarioS6(t *testing.T) {
	plan := DeriveRateLimitPlan(errResponse(http.StatusForbidden,
		"You have exceeded a secondary rate limit, timestamp 2026-01-31 19:49:07 UTC", nil))
	if !plan.Throttled {
		t.Fatalf("expected throttled")
	}
	want := time.Date(2026, 1, 31, 19, 49, 7, 0, time.UTC)
	if !plan.ResumeAt.Equal(want) {
		t.Fatalf("ResumeAt = %v, want %v", plan.ResumeAt, want)
	}
	if plan.Snapshot.Kind != "github-rate-limit" {
		t.Fatalf("Snapshot.Kind = %q, want github-rate-limit", plan.Snapshot.Kind)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
