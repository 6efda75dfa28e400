package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/ralphcore/ralph/internal/store"
)

// Report is the wire-exact doctor JSON contract (spec §6).
type Report struct {
	SchemaVersion      int              `json:"schema_version"`
	Timestamp          time.Time        `json:"timestamp"`
	OverallStatus      Severity         `json:"overall_status"`
	Findings           []Finding        `json:"findings"`
	RecommendedRepairs []Recommendation `json:"recommended_repairs"`
	AppliedRepairs     []Applied        `json:"applied_repairs"`
}

// RunDoctor diagnoses the control root and, if apply is true, carries out
// the safe subset of recommended repairs. db may be nil when the database
// couldn't be opened at all; that itself becomes an error finding rather
// than aborting the report.
func RunDoctor(ctx context.Context, db store.DB, canonicalRoot string, legacyRoots []string, apply bool, now time.Time) Report {
	findings, recs := Diagnose(canonicalRoot, legacyRoots)
	findings = append(findings, capabilityFinding(ctx, db))

	var applied []Applied
	if apply {
		applied = Apply(recs, canonicalRoot, now)
	}

	return Report{
		SchemaVersion:      1,
		Timestamp:          now,
		OverallStatus:      OverallStatus(findings),
		Findings:           findings,
		RecommendedRepairs: recs,
		AppliedRepairs:     applied,
	}
}

// capabilityFinding reports the database's read/write capability per spec
// §4.A: the daemon refuses to start outside readable_writable, and doctor
// always surfaces what capability a fresh start would get.
func capabilityFinding(ctx context.Context, db store.DB) Finding {
	if db == nil {
		return Finding{
			Code:     FindingDatabaseCapability,
			Severity: SeverityError,
			Message:  "database unavailable; capability could not be evaluated",
		}
	}

	capability, schemaVersion, err := store.CheckCapability(ctx, db)
	if err != nil {
		return Finding{
			Code:     FindingDatabaseCapability,
			Severity: SeverityError,
			Message:  fmt.Sprintf("evaluating database capability: %v", err),
		}
	}

	severity := SeverityOK
	if capability != store.ReadableWritable {
		severity = SeverityWarn
	}
	return Finding{
		Code:     FindingDatabaseCapability,
		Severity: severity,
		Message:  fmt.Sprintf("schema_version %d: %s", schemaVersion, capability),
	}
}

// ExitCode returns the process exit code for a report: 0 when ok, else 1.
func (r Report) ExitCode() int {
	if r.OverallStatus == SeverityOK {
		return 0
	}
	return 1
}
