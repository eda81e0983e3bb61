package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the last successful listing fetched for a query key.
type Snapshot struct {
	QueryKey  string
	Bundles   []models.RawBundle
	FetchedAt time.Time
}

// SnapshotRepo persists last-known-good listings so the catalog can still
// answer while the backend is down.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS bundle_snapshots (
			query_key  TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create bundle_snapshots: %w", err)
	}
	return nil
}

// Save upserts the listing for key.
func (r *SnapshotRepo) Save(ctx context.Context, key string, bundles []models.RawBundle, fetchedAt time.Time) error {
	payload, err := json.Marshal(bundles)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO bundle_snapshots (query_key, payload, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (query_key)
		DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, payload, fetchedAt); err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) (*Snapshot, error) {
	query := `
		SELECT payload, fetched_at
		FROM bundle_snapshots
		WHERE query_key = $1
	`

	var (
		payload   []byte
		fetchedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(&payload, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load snapshot %q: %w", key, err)
	}

	var bundles []models.RawBundle
	if err := json.Unmarshal(payload, &bundles); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", key, err)
	}

	return &Snapshot{QueryKey: key, Bundles: bundles, FetchedAt: fetchedAt}, nil
}
