package timetrack

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines time entry persistence.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	ListActive(ctx context.Context) ([]Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (Statistics, error)
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const entryColumns = `id, description, start_time, end_time, created_at, updated_at`

// SQLiteRepository implements Repository on the time_entries table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository using db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts e. CreatedAt and UpdatedAt are set when zero.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, description, start_time, end_time, duration_us, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Description,
		formatTime(e.StartTime),
		nullableTime(e.EndTime),
		nullableDuration(e),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting time entry: %w", err)
	}
	return nil
}

// GetByID returns the entry or ErrEntryNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("querying time entry: %w", err)
	}
	return e, nil
}

// List returns every entry, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Entry, error) {
	return r.query(ctx, `SELECT `+entryColumns+` FROM time_entries ORDER BY created_at DESC, rowid DESC`)
}

// ListActive returns the entries without an end time, newest first.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Entry, error) {
	return r.query(ctx, `SELECT `+entryColumns+` FROM time_entries
		WHERE end_time IS NULL ORDER BY created_at DESC, rowid DESC`)
}

// Update writes the mutable fields of e and refreshes UpdatedAt.
func (r *SQLiteRepository) Update(ctx context.Context, e *Entry) error {
	e.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE time_entries
		SET description = ?, end_time = ?, duration_us = ?, updated_at = ?
		WHERE id = ?`,
		e.Description,
		nullableTime(e.EndTime),
		nullableDuration(e),
		formatTime(e.UpdatedAt),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating time entry: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes the entry or returns ErrEntryNotFound.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting time entry: %w", err)
	}
	return expectOneRow(result)
}

// Statistics counts all entries and sums the durations of finished ones.
func (r *SQLiteRepository) Statistics(ctx context.Context) (Statistics, error) {
	var (
		count int
		total sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(id), SUM(duration_us) FROM time_entries`,
	).Scan(&count, &total)
	if err != nil {
		return Statistics{}, fmt.Errorf("aggregating time entries: %w", err)
	}

	stats := Statistics{TotalEntries: count, TotalDuration: FormatDuration(0)}
	if total.Valid && total.Int64 != 0 {
		d := time.Duration(total.Int64) * time.Microsecond
		stats.TotalDuration = FormatDuration(d)
		stats.TotalSeconds = d.Seconds()
	}
	return stats, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying time entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning time entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time entries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e                          Entry
		start, created, updated    string
		end                        sql.NullString
	)
	if err := s.Scan(&e.ID, &e.Description, &start, &end, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if e.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if end.Valid {
		t, err := parseTime(end.String)
		if err != nil {
			return nil, err
		}
		e.EndTime = &t
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableDuration(e *Entry) any {
	d, ok := e.Duration()
	if !ok {
		return nil
	}
	return d.Microseconds()
}
