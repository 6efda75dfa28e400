package store

import (
	"context"
	"testing"
)

func TestCurrentSchemaVersionReadsMetaRow(t *testing.T) {
	db := newTestDB(t)
	v, err := CurrentSchemaVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("CurrentSchemaVersion: %v", err)
	}
	if v < 1 {
		t.Fatalf("schema_version = %d, want >= 1 after migrating", v)
	}
}

func TestEvaluateCapabilityReadableWritableWhenWithinWritableRange(t *testing.T) {
	if got := EvaluateCapability(3, 1, 5, 5); got != ReadableWritable {
		t.Fatalf("got %q, want %q", got, ReadableWritable)
	}
	if got := EvaluateCapability(5, 1, 5, 5); got != ReadableWritable {
		t.Fatalf("got %q, want %q at the writable boundary", got, ReadableWritable)
	}
}

func TestEvaluateCapabilityReadonlyForwardWhenNewerButStillReadable(t *testing.T) {
	if got := EvaluateCapability(6, 1, 8, 5); got != ReadableReadonlyForwardNewer {
		t.Fatalf("got %q, want %q", got, ReadableReadonlyForwardNewer)
	}
	if got := EvaluateCapability(8, 1, 8, 5); got != ReadableReadonlyForwardNewer {
		t.Fatalf("got %q, want %q at the readable boundary", got, ReadableReadonlyForwardNewer)
	}
}

func TestEvaluateCapabilityUnreadableWhenBeyondReadableRange(t *testing.T) {
	if got := EvaluateCapability(9, 1, 8, 5); got != UnreadableForwardIncompatible {
		t.Fatalf("got %q, want %q", got, UnreadableForwardIncompatible)
	}
}

func TestEvaluateCapabilityUnreadableWhenBelowMinReadable(t *testing.T) {
	// currentSchema below minReadableSchema and above maxWritableSchema: an
	// old binary that has fallen too far behind to even read the schema.
	if got := EvaluateCapability(0, 1, 8, -1); got != UnreadableForwardIncompatible {
		t.Fatalf("got %q, want %q", got, UnreadableForwardIncompatible)
	}
}

func TestCheckCapabilityReadableWritableOnFreshlyMigratedDatabase(t *testing.T) {
	db := newTestDB(t)
	got, schemaVersion, err := CheckCapability(context.Background(), db)
	if err != nil {
		t.Fatalf("CheckCapability: %v", err)
	}
	if got != ReadableWritable {
		t.Fatalf("got %q, want %q for a freshly migrated database", got, ReadableWritable)
	}
	if schemaVersion != MaxWritableSchema {
		t.Fatalf("schemaVersion = %d, want %d", schemaVersion, MaxWritableSchema)
	}
}
