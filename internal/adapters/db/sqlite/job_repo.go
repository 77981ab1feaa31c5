package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"tskit/internal/domain"
)

// JobRepo records machine fill runs and their per-message outcome.
type JobRepo struct{ *Repo }

func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{NewRepo(db)} }

func (r *JobRepo) Create(ctx context.Context, j *domain.Job) (int64, error) {
	ts := now()
	q := r.SQ.Insert("jobs").Columns("type", "status", "locale", "model", "progress", "total", "failed", "created_at", "updated_at").
		Values(j.Type, j.Status, j.Locale, j.Model, j.Progress, j.Total, j.Failed, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	j.ID = id
	return id, nil
}

func (r *JobRepo) UpdateProgress(ctx context.Context, jobID int64, done, failed, total int, status string) error {
	q := r.SQ.Update("jobs").
		Set("progress", done).
		Set("failed", failed).
		Set("total", total).
		Set("status", status).
		Set("updated_at", now()).
		Where(sq.Eq{"id": jobID})
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *JobRepo) AddItem(ctx context.Context, ji *domain.JobItem) error {
	q := r.SQ.Insert("job_items").Columns("job_id", "context", "source_text", "status", "error", "created_at").
		Values(ji.JobID, ji.Context, ji.Source, ji.Status, ji.Error, now())
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

var jobColumns = []string{"id", "type", "status", "locale", "model", "progress", "total", "failed", "created_at", "updated_at"}

func (r *JobRepo) Get(ctx context.Context, jobID int64) (*domain.Job, error) {
	sqlStr, args, _ := r.SQ.Select(jobColumns...).From("jobs").Where(sq.Eq{"id": jobID}).Limit(1).ToSql()
	j, err := scanJob(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", jobID, domain.ErrNotFound)
	}
	return j, err
}

func (r *JobRepo) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	sqlStr, args, _ := r.SQ.Select(jobColumns...).From("jobs").OrderBy("id DESC").Limit(uint64(limit)).ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepo) ListItems(ctx context.Context, jobID int64) ([]*domain.JobItem, error) {
	sqlStr, args, _ := r.SQ.Select("job_id", "context", "source_text", "status", "error").
		From("job_items").Where(sq.Eq{"job_id": jobID}).OrderBy("id").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.JobItem
	for rows.Next() {
		var ji domain.JobItem
		if err := rows.Scan(&ji.JobID, &ji.Context, &ji.Source, &ji.Status, &ji.Error); err != nil {
			return nil, err
		}
		out = append(out, &ji)
	}
	return out, rows.Err()
}

func scanJob(s rowScanner) (*domain.Job, error) {
	var j domain.Job
	var created, updated string
	if err := s.Scan(&j.ID, &j.Type, &j.Status, &j.Locale, &j.Model, &j.Progress, &j.Total, &j.Failed, &created, &updated); err != nil {
		return nil, err
	}
	j.CreatedAt = parseTime(created)
	j.UpdatedAt = parseTime(updated)
	return &j, nil
}
