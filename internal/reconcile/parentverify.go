package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/store"
	"github.com/ralphcore/ralph/internal/tunables"
)

// ParentVerifyPayload is the RALPH_VERIFY: JSON block attached to the
// marker comment.
type ParentVerifyPayload struct {
	Version      int      `json:"version"`
	WorkRemains  bool     `json:"work_remains"`
	Confidence   float64  `json:"confidence"`
	Checked      []string `json:"checked"`
	WhySatisfied string   `json:"why_satisfied"`
	Evidence     []string `json:"evidence"`
}

// ParentVerifier writes back a satisfied=true verdict for a parent issue:
// it posts (or updates) a marker comment and closes the issue, transitioning
// its status labels to done.
type ParentVerifier struct {
	GH *ghclient.Client
	DB store.DB
	Q  *queue.Driver
}

func verifyMarker(issueNumber int) string {
	return fmt.Sprintf("<!-- ralph-verify:v1 id=%d -->", issueNumber)
}

// Writeback marks a parent issue satisfied: posts or updates the marker
// comment, closes the issue, and converges its status labels to done. Every
// write is claimed through the idempotency ledger so a retried writeback
// after a partial failure doesn't double-post.
func (v *ParentVerifier) Writeback(ctx context.Context, owner, repoName string, issueNumber int, payload ParentVerifyPayload) error {
	repo := owner + "/" + repoName
	body, err := buildVerifyComment(issueNumber, payload)
	if err != nil {
		return fmt.Errorf("reconcile: building verify comment for %s#%d: %w", repo, issueNumber, err)
	}

	commentKey := fmt.Sprintf("parentverify:comment:%s:%d", repo, issueNumber)
	claimed, err := store.Claim(ctx, v.DB, commentKey, "parentverify")
	if err != nil {
		return fmt.Errorf("reconcile: claiming comment key for %s#%d: %w", repo, issueNumber, err)
	}
	if claimed {
		if err := v.writeComment(ctx, owner, repoName, issueNumber, body); err != nil {
			if delErr := store.Delete(ctx, v.DB, commentKey); delErr != nil {
				return fmt.Errorf("reconcile: writing verify comment for %s#%d: %w (and releasing claim: %v)", repo, issueNumber, err, delErr)
			}
			return fmt.Errorf("reconcile: writing verify comment for %s#%d: %w", repo, issueNumber, err)
		}
	}

	closeKey := fmt.Sprintf("parentverify:close:%s:%d", repo, issueNumber)
	closeClaimed, err := store.Claim(ctx, v.DB, closeKey, "parentverify")
	if err != nil {
		return fmt.Errorf("reconcile: claiming close key for %s#%d: %w", repo, issueNumber, err)
	}
	if closeClaimed {
		if err := v.GH.CloseIssue(ctx, owner, repoName, issueNumber); err != nil {
			if delErr := store.Delete(ctx, v.DB, closeKey); delErr != nil {
				return fmt.Errorf("reconcile: closing %s#%d: %w (and releasing claim: %v)", repo, issueNumber, err, delErr)
			}
			return fmt.Errorf("reconcile: closing %s#%d: %w", repo, issueNumber, err)
		}
	}

	return v.Q.Converge(ctx, owner, repoName, issueNumber, queue.StatusDone, false)
}

// writeComment scans up to ParentVerifyCommentScanLimit recent comments for
// an existing marker; found means PATCH in place, not found means POST new.
// On a listing failure, it assumes the comment already exists from a prior
// attempt (the claim having already succeeded is the signal that a write
// was attempted) rather than risk a duplicate post.
func (v *ParentVerifier) writeComment(ctx context.Context, owner, repoName string, issueNumber int, body string) error {
	marker := verifyMarker(issueNumber)
	comments, _, err := v.GH.ListIssueComments(ctx, owner, repoName, issueNumber, &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: tunables.ParentVerifyCommentScanLimit},
	})
	if err != nil {
		return nil
	}
	for _, c := range comments {
		if strings.Contains(c.GetBody(), marker) {
			return v.GH.UpdateComment(ctx, owner, repoName, c.GetID(), body)
		}
	}
	_, err = v.GH.CreateComment(ctx, owner, repoName, issueNumber, body)
	return err
}

func buildVerifyComment(issueNumber int, payload ParentVerifyPayload) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(verifyMarker(issueNumber))
	b.WriteString("\n\nRALPH_VERIFY: ")
	b.Write(payloadJSON)
	return b.String(), nil
}
