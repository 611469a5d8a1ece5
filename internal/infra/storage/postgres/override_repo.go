package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
)

// OverrideRepo implements storage.OverrideRepository using PostgreSQL.
type OverrideRepo struct {
	db *DB
}

// NewOverrideRepo creates a new PostgreSQL override repository.
func NewOverrideRepo(db *DB) *OverrideRepo {
	return &OverrideRepo{db: db}
}

type overrideRow struct {
	ItemID    string    `db:"item_id"`
	UserID    string    `db:"user_id"`
	Category  string    `db:"category"`
	Metadata  []byte    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

func (row *overrideRow) toDomain() (*domain.Override, error) {
	var metadata map[string]string
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return &domain.Override{
		ItemID:    row.ItemID,
		UserID:    row.UserID,
		Category:  domain.Category(row.Category),
		Metadata:  metadata,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Upsert saves an override; last write wins per (item, user).
func (r *OverrideRepo) Upsert(ctx context.Context, override *domain.Override) error {
	metadata, err := json.Marshal(override.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO overrides (item_id, user_id, category, metadata, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (item_id, user_id) DO UPDATE SET
			category = EXCLUDED.category,
			metadata = EXCLUDED.metadata,
			created_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		override.ItemID,
		override.UserID,
		string(override.Category),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

// Get retrieves an override, nil when absent.
func (r *OverrideRepo) Get(ctx context.Context, itemID, userID string) (*domain.Override, error) {
	query := `
		SELECT item_id, user_id, category, metadata, created_at
		FROM overrides
		WHERE item_id = $1 AND user_id = $2
	`

	var row overrideRow
	err := r.db.GetContext(ctx, &row, query, itemID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}
	return row.toDomain()
}

// Delete removes an override.
func (r *OverrideRepo) Delete(ctx context.Context, itemID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM overrides WHERE item_id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// DeleteExpired removes overrides created before the threshold.
func (r *OverrideRepo) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM overrides WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired overrides: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return deleted, nil
}
