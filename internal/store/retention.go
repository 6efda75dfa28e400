package store

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// secretPatterns matches known secret shapes so gate-artifact excerpts never
// leak credentials into the database.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`gho_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),
}

// RedactSecrets replaces substrings matching known secret shapes with "[redacted]".
func RedactSecrets(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, "[redacted]")
	}
	return s
}

// ClipLines truncates s to at most maxLines lines.
func ClipLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}

// AddRunGateArtifact redacts and clips content, inserts it, then trims the
// (runId, gate, kind) group back down to the retention cap by deleting the
// oldest rows.
func AddRunGateArtifact(ctx context.Context, db DB, runID, gate, kind, content string, maxLines, cap int) error {
	clean := ClipLines(RedactSecrets(content), maxLines)
	art := RunGateArtifact{RunID: runID, Gate: gate, Kind: kind, Content: clean, CreatedAt: time.Now().UTC()}
	if _, err := db.Insert(ctx, "run_gate_artifacts", &art); err != nil {
		return err
	}
	return db.Exec(ctx, `DELETE FROM run_gate_artifacts WHERE id IN (
		SELECT id FROM run_gate_artifacts WHERE run_id = ? AND gate = ? AND kind = ?
		ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
	)`, runID, gate, kind, cap)
}
