package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ralphcore/ralph/internal/config"
	"github.com/ralphcore/ralph/internal/store"
)

// newTestDoctorDB returns a freshly migrated SQLite store.DB for doctor
// tests so RunDoctor's capability finding has something real to evaluate.
func newTestDoctorDB(t *testing.T) store.DB {
	t.Helper()
	db, err := store.NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "ralph.db")})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestOverallStatusRanksErrorOverWarnOverOK(t *testing.T) {
	if got := OverallStatus(nil); got != SeverityOK {
		t.Fatalf("OverallStatus(nil) = %v, want ok", got)
	}
	if got := OverallStatus([]Finding{{Severity: SeverityWarn}}); got != SeverityWarn {
		t.Fatalf("OverallStatus(warn) = %v, want warn", got)
	}
	if got := OverallStatus([]Finding{{Severity: SeverityWarn}, {Severity: SeverityError}}); got != SeverityError {
		t.Fatalf("OverallStatus(warn+error) = %v, want error", got)
	}
}

func TestRunDoctorReportsMissingCanonicalRecordAsOK(t *testing.T) {
	root := t.TempDir()
	db := newTestDoctorDB(t)
	report := RunDoctor(context.Background(), db, root, nil, false, time.Now().UTC())

	if report.SchemaVersion != 1 {
		t.Fatalf("SchemaVersion = %d, want 1", report.SchemaVersion)
	}
	if report.OverallStatus != SeverityOK {
		t.Fatalf("OverallStatus = %v, want ok for an empty control root", report.OverallStatus)
	}
	if report.ExitCode() != 0 {
		t.Fatalf("ExitCode() = %d, want 0", report.ExitCode())
	}

	found := false
	for _, f := range report.Findings {
		if f.Code == FindingMissingCanonicalRecord {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MISSING_CANONICAL_RECORD finding, got %+v", report.Findings)
	}
}

func TestRunDoctorFlagsStaleRecordAndRepairsOnApply(t *testing.T) {
	root := t.TempDir()
	db := newTestDoctorDB(t)
	recordPath := CanonicalRecordPath(root)
	rec := &Record{
		Version: 1, DaemonID: "dead-daemon", PID: 999999999,
		StartedAt: time.Now().Add(-time.Hour).UTC(), HeartbeatAt: time.Now().Add(-time.Hour).UTC(),
		ControlRoot: root, ControlFilePath: CanonicalControlPath(root), Command: []string{"ralph"},
	}
	if err := WriteRecord(recordPath, rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	report := RunDoctor(context.Background(), db, root, nil, false, time.Now().UTC())
	if report.OverallStatus != SeverityWarn {
		t.Fatalf("OverallStatus = %v, want warn for a stale record", report.OverallStatus)
	}
	if report.ExitCode() != 1 {
		t.Fatalf("ExitCode() = %d, want 1", report.ExitCode())
	}
	if len(report.RecommendedRepairs) == 0 {
		t.Fatalf("expected a recommended repair for the stale record")
	}

	applied := RunDoctor(context.Background(), db, root, nil, true, time.Now().UTC())
	if len(applied.AppliedRepairs) == 0 {
		t.Fatalf("expected the stale record to be quarantined with --apply")
	}
	if _, err := os.Stat(recordPath); err == nil {
		t.Fatalf("expected the original record path to be moved aside after quarantine")
	}
}

func TestRunDoctorRecognisesLiveMatchingRecordAsHealthy(t *testing.T) {
	root := t.TempDir()
	db := newTestDoctorDB(t)
	recordPath := CanonicalRecordPath(root)
	rec := &Record{
		Version: 1, DaemonID: "live-daemon", PID: os.Getpid(),
		StartedAt: time.Now().UTC(), HeartbeatAt: time.Now().UTC(),
		ControlRoot: root, ControlFilePath: CanonicalControlPath(root), Command: os.Args,
	}
	if err := WriteRecord(recordPath, rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	report := RunDoctor(context.Background(), db, root, nil, false, time.Now().UTC())
	for _, f := range report.Findings {
		if f.Code == FindingStaleDaemonRecord || f.Code == FindingUnreadableDaemonRecord {
			t.Fatalf("did not expect the current test process's own record to be flagged stale/unreadable: %+v", f)
		}
	}
}
