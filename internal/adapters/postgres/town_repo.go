package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// TownRepo implements ports.TownRepository with pgx.
type TownRepo struct {
	db *DB
}

// NewTownRepo creates a new TownRepo.
func NewTownRepo(db *DB) *TownRepo {
	return &TownRepo{db: db}
}

// UpsertBatch inserts or updates towns using pgx.Batch.
func (r *TownRepo) UpsertBatch(ctx context.Context, towns []domain.Town) error {
	batch := &pgx.Batch{}
	for _, t := range towns {
		batch.Queue(`
			INSERT INTO towns (run_id, town_id, name, size, lat, lon)
			VALUES ($1::uuid, $2, $3, $4, $5, $6)
			ON CONFLICT (run_id, town_id) DO UPDATE
			SET name = EXCLUDED.name, size = EXCLUDED.size,
			    lat = EXCLUDED.lat, lon = EXCLUDED.lon
		`, t.RunID, t.ID, t.Name, t.Size, t.Location.Lat, t.Location.Lon)
		if batch.Len() >= batchSize {
			if err := sendBatch(ctx, r.db.Pool, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return sendBatch(ctx, r.db.Pool, batch)
}

// ListByRun returns a run's towns ordered by town ID.
func (r *TownRepo) ListByRun(ctx context.Context, runID string) ([]domain.Town, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT town_id, run_id::text, name, size, lat, lon
		FROM towns WHERE run_id = $1::uuid
		ORDER BY town_id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var towns []domain.Town
	for rows.Next() {
		var t domain.Town
		if err := rows.Scan(&t.ID, &t.RunID, &t.Name, &t.Size, &t.Location.Lat, &t.Location.Lon); err != nil {
			return nil, err
		}
		towns = append(towns, t)
	}
	return towns, rows.Err()
}
