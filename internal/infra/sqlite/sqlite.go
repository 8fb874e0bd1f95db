// Package sqlite persists invitation batches and wizard progress so a
// failed subset can be retried after a restart.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/onboarding"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"
)

var _ port.BatchStore = (*Store)(nil)

// Store implements port.BatchStore using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// ":memory:" is accepted for tests.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveBatch inserts or replaces a batch with all its items.
func (s *Store) SaveBatch(ctx context.Context, b *onboarding.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invite_batches (id, society_id, role_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		b.ID, b.SocietyID, int(b.Role), b.CreatedAt.UnixNano(), b.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM invite_items WHERE batch_id = ?", b.ID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	for i, it := range b.Items {
		var flatID sql.NullInt64
		if it.FlatID != nil {
			flatID = sql.NullInt64{Int64: *it.FlatID, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invite_items
			  (batch_id, position, name, email, flat_id, status, error, attempts, user_id, invitation_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, i, it.Name, it.Email, flatID, string(it.Status), it.Error, it.Attempts, it.UserID, it.InvitationID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	return tx.Commit()
}

// GetBatch loads a batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (*onboarding.Batch, error) {
	var (
		b                onboarding.Batch
		role             int
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, society_id, role_id, created_at, updated_at FROM invite_batches WHERE id = ?", id,
	).Scan(&b.ID, &b.SocietyID, &role, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "invitation batch", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	b.Role = domain.Role(role)
	b.CreatedAt = time.Unix(0, created).UTC()
	b.UpdatedAt = time.Unix(0, updated).UTC()

	items, err := s.loadItems(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return &b, nil
}

func (s *Store) loadItems(ctx context.Context, batchID string) ([]onboarding.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, email, flat_id, status, error, attempts, user_id, invitation_id
		FROM invite_items WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []onboarding.Item
	for rows.Next() {
		var (
			it     onboarding.Item
			flatID sql.NullInt64
			status string
		)
		if err := rows.Scan(&it.Name, &it.Email, &flatID, &status, &it.Error, &it.Attempts, &it.UserID, &it.InvitationID); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if flatID.Valid {
			v := flatID.Int64
			it.FlatID = &v
		}
		it.Status = onboarding.ItemStatus(status)
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListBatches returns a society's batches, newest first.
func (s *Store) ListBatches(ctx context.Context, societyID int64) ([]onboarding.Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM invite_batches WHERE society_id = ? ORDER BY created_at DESC", societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan batch id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]onboarding.Batch, 0, len(ids))
	for _, id := range ids {
		b, err := s.GetBatch(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// SaveWizard stores a society's invitation wizard progress.
func (s *Store) SaveWizard(ctx context.Context, societyID int64, st onboarding.WizardState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wizard_states (society_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(society_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		societyID, string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save wizard: %w", err)
	}
	return nil
}

// GetWizard loads a society's wizard progress. A society that never
// started returns a fresh state.
func (s *Store) GetWizard(ctx context.Context, societyID int64) (*onboarding.WizardState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM wizard_states WHERE society_id = ?", societyID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		st := onboarding.NewWizard().State()
		return &st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wizard: %w", err)
	}
	var st onboarding.WizardState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to decode wizard: %w", err)
	}
	return &st, nil
}
