package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
	"github.com/vietddude/mailsift/internal/infra/storage"
)

// ResultRepo implements storage.ResultRepository using PostgreSQL.
type ResultRepo struct {
	db *DB
}

// NewResultRepo creates a new PostgreSQL result repository.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

type resultRow struct {
	ContentHash    string    `db:"content_hash"`
	Sender         string    `db:"sender"`
	Subject        string    `db:"subject"`
	Category       string    `db:"category"`
	Priority       string    `db:"priority"`
	Sentiment      string    `db:"sentiment"`
	Topics         []byte    `db:"topics"`
	ActionRequired bool      `db:"action_required"`
	Summary        string    `db:"summary"`
	Confidence     float64   `db:"confidence"`
	Source         string    `db:"source"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row *resultRow) toDomain() (*domain.Result, error) {
	var topics []string
	if len(row.Topics) > 0 {
		if err := json.Unmarshal(row.Topics, &topics); err != nil {
			return nil, fmt.Errorf("failed to decode topics: %w", err)
		}
	}

	r := &domain.Result{
		Category:       domain.Category(row.Category),
		Priority:       domain.Priority(row.Priority),
		Sentiment:      domain.Sentiment(row.Sentiment),
		Topics:         topics,
		ActionRequired: row.ActionRequired,
		Summary:        row.Summary,
		Confidence:     row.Confidence,
		Source:         row.Source,
		Timestamp:      row.UpdatedAt,
	}
	r.Normalize()
	return r, nil
}

// Save upserts the classification for a content hash. A write for an
// existing hash replaces the prior row and bumps updated_at.
func (r *ResultRepo) Save(ctx context.Context, contentHash string, item domain.Item, result *domain.Result) error {
	topics, err := json.Marshal(result.Topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	query := `
		INSERT INTO classifications (
			content_hash, sender, subject, category, priority, sentiment,
			topics, action_required, summary, confidence, source, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (content_hash) DO UPDATE SET
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			sentiment = EXCLUDED.sentiment,
			topics = EXCLUDED.topics,
			action_required = EXCLUDED.action_required,
			summary = EXCLUDED.summary,
			confidence = EXCLUDED.confidence,
			source = EXCLUDED.source,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		contentHash,
		item.Sender,
		item.Subject,
		string(result.Category),
		string(result.Priority),
		string(result.Sentiment),
		topics,
		result.ActionRequired,
		result.Summary,
		result.Confidence,
		result.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}
	return nil
}

// GetByHash retrieves the latest row for a content hash.
func (r *ResultRepo) GetByHash(ctx context.Context, contentHash string) (*domain.Result, error) {
	query := `
		SELECT content_hash, sender, subject, category, priority, sentiment,
		       topics, action_required, summary, confidence, source, created_at, updated_at
		FROM classifications
		WHERE content_hash = $1
	`

	var row resultRow
	err := r.db.GetContext(ctx, &row, query, contentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return row.toDomain()
}

// Stats computes aggregates on demand, not incrementally maintained.
func (r *ResultRepo) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{
		ByCategory: make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int64  `db:"count"`
	}

	var categories []bucket
	err := r.db.SelectContext(ctx, &categories,
		`SELECT category AS key, COUNT(*) AS count FROM classifications GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	for _, b := range categories {
		stats.ByCategory[b.Key] = b.Count
		stats.Total += b.Count
	}
	stats.DistinctCategories = int64(len(categories))

	var priorities []bucket
	err = r.db.SelectContext(ctx, &priorities,
		`SELECT priority AS key, COUNT(*) AS count FROM classifications GROUP BY priority`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate priorities: %w", err)
	}
	for _, b := range priorities {
		stats.ByPriority[b.Key] = b.Count
	}

	return stats, nil
}
