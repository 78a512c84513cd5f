package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// DayCountRepo implements ports.DayCountRepository with pgx.
type DayCountRepo struct {
	db *DB
}

// NewDayCountRepo creates a new DayCountRepo.
func NewDayCountRepo(db *DB) *DayCountRepo {
	return &DayCountRepo{db: db}
}

// InsertBatch stores counts using pgx.Batch, replacing existing rows.
func (r *DayCountRepo) InsertBatch(ctx context.Context, counts []domain.DayCount) error {
	batch := &pgx.Batch{}
	for _, c := range counts {
		batch.Queue(`
			INSERT INTO day_counts (run_id, day, town_id, infected)
			VALUES ($1::uuid, $2, $3, $4)
			ON CONFLICT (run_id, day, town_id) DO UPDATE SET infected = EXCLUDED.infected
		`, c.RunID, c.Day, c.TownID, c.Infected)
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

// CountsForDay returns townID -> infected for one day of a run.
func (r *DayCountRepo) CountsForDay(ctx context.Context, runID string, day int) (map[int]int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT town_id, infected FROM day_counts
		WHERE run_id = $1::uuid AND day = $2
	`, runID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var townID, infected int
		if err := rows.Scan(&townID, &infected); err != nil {
			return nil, err
		}
		counts[townID] = infected
	}
	return counts, rows.Err()
}

// Peaks returns, per town, the earliest day with its highest count.
func (r *DayCountRepo) Peaks(ctx context.Context, runID string) ([]domain.TownPeak, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (town_id) town_id, day, infected
		FROM day_counts
		WHERE run_id = $1::uuid
		ORDER BY town_id, infected DESC, day ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peaks []domain.TownPeak
	for rows.Next() {
		var p domain.TownPeak
		if err := rows.Scan(&p.TownID, &p.Day, &p.Infected); err != nil {
			return nil, err
		}
		peaks = append(peaks, p)
	}
	return peaks, rows.Err()
}
