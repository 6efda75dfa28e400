package ghclient

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/go-github/v68/github"
)

// ErrorKind classifies a GitHub API failure (spec §4.B, §7).
type ErrorKind string

const (
	ErrRateLimit  ErrorKind = "rate_limit"
	ErrAuth       ErrorKind = "auth"
	ErrNotFound   ErrorKind = "not_found"
	ErrValidation ErrorKind = "validation"
	ErrNetwork    ErrorKind = "network"
	ErrServer     ErrorKind = "server"
	ErrTransient  ErrorKind = "transient"
	ErrUnknown    ErrorKind = "unknown"
)

// GitHubApiError is the typed error value every ghclient call returns
// instead of a bare wrapped error, so callers can classify without string
// matching.
type GitHubApiError struct {
	Code         ErrorKind
	Status       int
	RequestID    string
	ResponseText string
	ResumeAtTs   *time.Time
	Err          error
}

func (e *GitHubApiError) Error() string {
	return fmt.Sprintf("github api error (%s, status=%d): %v", e.Code, e.Status, e.Err)
}

func (e *GitHubApiError) Unwrap() error { return e.Err }

// Classify converts a raw error returned by go-github into a GitHubApiError.
// Network errors (no HTTP response at all) classify as ErrNetwork.
func Classify(err error) *GitHubApiError {
	if err == nil {
		return nil
	}
	var apiErr *GitHubApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		status := ghErr.Response.StatusCode
		reqID := ghErr.Response.Header.Get("X-GitHub-Request-Id")
		out := &GitHubApiError{Status: status, RequestID: reqID, ResponseText: ghErr.Message, Err: err}

		switch {
		case status == http.StatusForbidden && isRateLimited(ghErr):
			out.Code = ErrRateLimit
			out.ResumeAtTs = resumeFromHeaders(ghErr.Response.Header)
			if out.ResumeAtTs == nil {
				out.ResumeAtTs = resumeFromBody(ghErr.Message)
			}
		case status == http.StatusTooManyRequests:
			out.Code = ErrRateLimit
			out.ResumeAtTs = resumeFromHeaders(ghErr.Response.Header)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			out.Code = ErrAuth
		case status == http.StatusNotFound:
			out.Code = ErrNotFound
		case status == http.StatusUnprocessableEntity:
			out.Code = ErrValidation
		case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
			out.Code = ErrTransient
		case status >= 500:
			out.Code = ErrServer
		default:
			out.Code = ErrUnknown
		}
		return out
	}

	var rlErr *github.RateLimitError
	if errors.As(err, &rlErr) {
		reset := rlErr.Rate.Reset.Time
		return &GitHubApiError{Code: ErrRateLimit, Status: http.StatusForbidden, ResumeAtTs: &reset, Err: err}
	}
	var arlErr *github.AbuseRateLimitError
	if errors.As(err, &arlErr) {
		var resume *time.Time
		if arlErr.RetryAfter != nil {
			t := time.Now().Add(*arlErr.RetryAfter)
			resume = &t
		}
		return &GitHubApiError{Code: ErrRateLimit, Status: http.StatusForbidden, ResumeAtTs: resume, Err: err}
	}

	return &GitHubApiError{Code: ErrNetwork, Err: err}
}

func isRateLimited(ghErr *github.ErrorResponse) bool {
	if ghErr.Response.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	return secondaryTimestampRe.MatchString(ghErr.Message)
}

func resumeFromHeaders(h http.Header) *time.Time {
	if h.Get("X-RateLimit-Remaining") != "0" {
		return nil
	}
	resetStr := h.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return nil
	}
	epoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(epoch, 0).UTC()
	return &t
}

// secondaryTimestampRe matches the "timestamp YYYY-MM-DD HH:MM:SS UTC" form
// GitHub embeds in secondary rate-limit error bodies.
var secondaryTimestampRe = regexp.MustCompile(`timestamp (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) UTC`)

func resumeFromBody(body string) *time.Time {
	m := secondaryTimestampRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", m[1])
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
