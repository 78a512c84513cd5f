package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// RunRepo implements ports.RunRepository with pgx.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// CreateRun inserts a run and returns the generated UUID.
func (r *RunRepo) CreateRun(ctx context.Context, run *domain.Run) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO runs (name, description, days, towns)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`, run.Name, run.Description, run.Days, run.Towns).Scan(&id, &run.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// GetRun returns a run by UUID.
func (r *RunRepo) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(description, ''), days, towns, created_at
		FROM runs WHERE id::text = $1
	`, id).Scan(&run.ID, &run.Name, &run.Description, &run.Days, &run.Towns, &run.CreatedAt)
	if err != nil {
		return nil, notFound(err, "run "+id)
	}
	return &run, nil
}

// ListRuns returns every run, newest first.
func (r *RunRepo) ListRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, name, COALESCE(description, ''), days, towns, created_at
		FROM runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.Name, &run.Description, &run.Days, &run.Towns, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run. Towns and day counts go with it through
// ON DELETE CASCADE.
func (r *RunRepo) DeleteRun(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM runs WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
