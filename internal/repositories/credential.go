package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CredentialRepository stores one slot of the credentials table.
type CredentialRepository struct {
	db   *sql.DB
	slot string
}

// NewCredentialRepository creates a [CredentialRepository] for slot. The database must be migrated.
func NewCredentialRepository(db *sql.DB, slot string) *CredentialRepository {
	return &CredentialRepository{db: db, slot: slot}
}

func (r *CredentialRepository) Load(ctx context.Context) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE slot = ?", r.slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query credential: %w", err)
	}
	return value, nil
}

func (r *CredentialRepository) Save(ctx context.Context, value string) error {
	query := `
		INSERT INTO credentials (slot, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, r.slot, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE slot = ?", r.slot); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// UpdatedAt reports when the slot was last written; the zero time means empty.
func (r *CredentialRepository) UpdatedAt(ctx context.Context) (time.Time, error) {
	var at time.Time
	err := r.db.QueryRowContext(ctx, "SELECT updated_at FROM credentials WHERE slot = ?", r.slot).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query credential: %w", err)
	}
	return at, nil
}
