package store

import (
	"context"
	"fmt"
	"strconv"
)

// Capability describes whether the running binary can safely read and
// write the database's current schema version.
type Capability string

const (
	ReadableWritable             Capability = "readable_writable"
	ReadableReadonlyForwardNewer Capability = "readable_readonly_forward_newer"
	UnreadableForwardIncompatible Capability = "unreadable_forward_incompatible"
)

// MinReadableSchema, MaxReadableSchema and MaxWritableSchema bound what this
// binary can do with a given schema_version. There is only one migration
// today, so all three sit at 1; a future migration bumps MaxWritableSchema
// (and MaxReadableSchema alongside it) while older binaries in the field
// keep their own bounds and fall back to readable_readonly_forward_newer.
const (
	MinReadableSchema = 1
	MaxReadableSchema = 1
	MaxWritableSchema = 1
)

// CurrentSchemaVersion returns the schema_version recorded in meta.
func CurrentSchemaVersion(ctx context.Context, db DB) (int, error) {
	var row struct {
		Value string `db:"value"`
	}
	err := db.Get(ctx, &row, `SELECT value FROM meta WHERE key = 'schema_version'`)
	if err != nil {
		return 0, fmt.Errorf("reading schema_version: %w", err)
	}
	v, err := strconv.Atoi(row.Value)
	if err != nil {
		return 0, fmt.Errorf("parsing schema_version %q: %w", row.Value, err)
	}
	return v, nil
}

// EvaluateCapability compares the database's current schema version against
// this binary's readable/writable range and returns how it may operate.
//
//   - currentSchema <= maxWritableSchema                       → readable_writable
//   - minReadableSchema <= currentSchema <= maxReadableSchema   → readable_readonly_forward_newer
//   - otherwise                                                 → unreadable_forward_incompatible
func EvaluateCapability(currentSchema, minReadableSchema, maxReadableSchema, maxWritableSchema int) Capability {
	if currentSchema <= maxWritableSchema {
		return ReadableWritable
	}
	if currentSchema >= minReadableSchema && currentSchema <= maxReadableSchema {
		return ReadableReadonlyForwardNewer
	}
	return UnreadableForwardIncompatible
}

// CheckCapability reads the database's current schema_version and evaluates
// this binary's capability against it, using the binary's own
// Min/Max{Readable,Writable}Schema bounds. This is the entry point daemon
// startup and doctor both call; it returns the raw schema version alongside
// the capability so callers can report it without a second query.
func CheckCapability(ctx context.Context, db DB) (Capability, int, error) {
	v, err := CurrentSchemaVersion(ctx, db)
	if err != nil {
		return "", 0, err
	}
	return EvaluateCapability(v, MinReadableSchema, MaxReadableSchema, MaxWritableSchema), v, nil
}
