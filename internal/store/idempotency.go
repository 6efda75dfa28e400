package store

import (
	"context"
	"errors"
	"time"
)

// Has reports whether key has already been claimed.
func Has(ctx context.Context, db DB, key string) (bool, error) {
	var e IdempotencyEntry
	err := db.Get(ctx, &e, `SELECT key, scope, created_at, payload_json FROM idempotency_keys WHERE key = ?`, key)
	if errors.Is(err, ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Claim atomically inserts key if absent, returning true iff this call
// performed the claim (false means someone already claimed it).
func Claim(ctx context.Context, db DB, key, scope string) (bool, error) {
	n, err := db.ExecResult(ctx,
		`INSERT OR IGNORE INTO idempotency_keys (key, scope, created_at, payload_json) VALUES (?, ?, ?, '')`,
		key, scope, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Payload returns the stored payload for key, or "" if none/absent.
func Payload(ctx context.Context, db DB, key string) (string, error) {
	var e IdempotencyEntry
	err := db.Get(ctx, &e, `SELECT key, scope, created_at, payload_json FROM idempotency_keys WHERE key = ?`, key)
	if errors.Is(err, ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return e.PayloadJSON, nil
}

// UpsertPayload attaches or replaces the payload for an already-claimed key.
func UpsertPayload(ctx context.Context, db DB, key, payload string) error {
	return db.Exec(ctx, `UPDATE idempotency_keys SET payload_json = ? WHERE key = ?`, payload, key)
}

// Delete removes a claimed key. Callers use this when the side effect the
// key guarded failed, so a future retry can re-claim and try again.
func Delete(ctx context.Context, db DB, key string) error {
	return db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = ?`, key)
}
