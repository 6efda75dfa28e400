package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/tunables"
)

// RequiredChecksPoller tracks the backoff delay for polling a PR's required
// status checks until they're final. The delay multiplies by
// tunables.RequiredChecksMultiplier each tick the check-set signature is
// unchanged, capped at RequiredChecksMaxDelay; a changed signature resets it
// to RequiredChecksBaseDelay.
type RequiredChecksPoller struct {
	delay       time.Duration
	lastSignature string
}

// NewRequiredChecksPoller returns a poller primed at the base delay.
func NewRequiredChecksPoller() *RequiredChecksPoller {
	return &RequiredChecksPoller{delay: tunables.RequiredChecksBaseDelay}
}

// Signature derives a stable signature for a check-run set: sorted
// "name:status:conclusion" tuples joined together, so any status/conclusion
// change (or an added/removed check) changes the signature.
func Signature(runs *github.ListCheckRunsResults) string {
	if runs == nil {
		return ""
	}
	parts := make([]string, 0, len(runs.CheckRuns))
	for _, r := range runs.CheckRuns {
		parts = append(parts, r.GetName()+":"+r.GetStatus()+":"+r.GetConclusion())
	}
	// Stable order independent of API response ordering.
	for i := 1; i < len(parts); i++ {
		for j := i; j > 0 && parts[j-1] > parts[j]; j-- {
			parts[j-1], parts[j] = parts[j], parts[j-1]
		}
	}
	return strconv.Itoa(len(parts)) + "|" + strings.Join(parts, ",")
}

// AllFinal reports whether every check run has a terminal status.
func AllFinal(runs *github.ListCheckRunsResults) bool {
	if runs == nil || len(runs.CheckRuns) == 0 {
		return false
	}
	for _, r := range runs.CheckRuns {
		if r.GetStatus() != "completed" {
			return false
		}
	}
	return true
}

// Next advances the poller given the current signature, returning the delay
// to wait before the next poll.
func (p *RequiredChecksPoller) Next(signature string) time.Duration {
	if signature != p.lastSignature {
		p.lastSignature = signature
		p.delay = tunables.RequiredChecksBaseDelay
		return p.delay
	}
	current := p.delay
	next := time.Duration(float64(p.delay) * tunables.RequiredChecksMultiplier)
	if next > tunables.RequiredChecksMaxDelay {
		next = tunables.RequiredChecksMaxDelay
	}
	p.delay = next
	return current
}
