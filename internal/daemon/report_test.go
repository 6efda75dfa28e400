package daemon

import (
	"context"
	"testing"
	"time"
)

func TestRunDoctorReportsReadableWritableCapability(t *testing.T) {
	root := t.TempDir()
	db := newTestDoctorDB(t)

	report := RunDoctor(context.Background(), db, root, nil, false, time.Now().UTC())

	var found *Finding
	for i := range report.Findings {
		if report.Findings[i].Code == FindingDatabaseCapability {
			found = &report.Findings[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a DATABASE_CAPABILITY finding, got %+v", report.Findings)
	}
	if found.Severity != SeverityOK {
		t.Fatalf("Severity = %v, want ok for a freshly migrated database", found.Severity)
	}
}

func TestRunDoctorReportsErrorFindingWhenDatabaseUnavailable(t *testing.T) {
	root := t.TempDir()

	report := RunDoctor(context.Background(), nil, root, nil, false, time.Now().UTC())

	var found *Finding
	for i := range report.Findings {
		if report.Findings[i].Code == FindingDatabaseCapability {
			found = &report.Findings[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a DATABASE_CAPABILITY finding even with a nil db")
	}
	if found.Severity != SeverityError {
		t.Fatalf("Severity = %v, want error when the database is unavailable", found.Severity)
	}
	if report.OverallStatus != SeverityError {
		t.Fatalf("OverallStatus = %v, want error", report.OverallStatus)
	}
}
