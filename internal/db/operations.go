package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orrn/ticket-spool/internal/core"
)

const (
	counterDateLayout = "2006-01-02"
	defaultListLimit  = 50
	maxListLimit      = 500
)

var ErrJobNotFound = errors.New("job not found")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrintJob(row rowScanner) (*PrintJob, error) {
	j := &PrintJob{}
	err := row.Scan(&j.ID, &j.Kind, &j.Status, &j.Copies, &j.Delivered,
		&j.Target, &j.Attempts, &j.ErrorMessage, &j.DurationMS, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// RecordJob stores a finished job and bumps the daily counter for its kind.
func (s *Store) RecordJob(ctx context.Context, result *core.JobResult) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, InsertPrintJob,
		result.JobID, string(result.Kind), string(result.Status),
		result.Copies, result.Delivered, result.Target, result.Attempts,
		result.Error, result.DurationMS, now); err != nil {
		return fmt.Errorf("failed to insert print job: %w", err)
	}

	failures := 0
	if result.Status == core.JobStatusFailed {
		failures = 1
	}
	if _, err := tx.ExecContext(ctx, UpsertPrintCounter,
		now.Format(counterDateLayout), string(result.Kind), result.Delivered, failures); err != nil {
		return fmt.Errorf("failed to update print counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job record: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*PrintJob, error) {
	j, err := scanPrintJob(s.db.QueryRowContext(ctx, GetPrintJobByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs newest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*PrintJob, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := listPrintJobsBase
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list print jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*PrintJob, 0)
	for rows.Next() {
		j, err := scanPrintJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{ByKind: make(map[string]int64), Today: make([]PrintCounter, 0)}

	if err := s.db.QueryRowContext(ctx, GetJobTotals).Scan(
		&stats.Total, &stats.Delivered, &stats.Failed, &stats.Copies); err != nil {
		return nil, fmt.Errorf("failed to get job totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, GetJobCountsByKind)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by kind: %w", err)
	}
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		stats.ByKind[kind] = count
	}
	rows.Close()

	today := time.Now().UTC().Format(counterDateLayout)
	rows, err = s.db.QueryContext(ctx, GetPrintCountersByDate, today)
	if err != nil {
		return nil, fmt.Errorf("failed to get print counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c PrintCounter
		if err := rows.Scan(&c.Date, &c.Kind, &c.Jobs, &c.Copies, &c.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan print counter: %w", err)
		}
		stats.Today = append(stats.Today, c)
	}
	return stats, rows.Err()
}

// PurgeOlderThan removes job rows and counters recorded before cutoff and
// returns the number of job rows removed.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	res, err := s.db.ExecContext(ctx, DeletePrintJobsBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge print jobs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, DeletePrintCountersBefore, cutoff.Format(counterDateLayout)); err != nil {
		return 0, fmt.Errorf("failed to purge print counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged jobs: %w", err)
	}
	return n, nil
}
