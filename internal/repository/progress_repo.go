package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/progress"
)

const dateLayout = "2006-01-02"

// ProgressRepository stores one student_progress row per student per day.
// It implements progress.Store and progress.History.
type ProgressRepository struct {
	db database.DBTX
}

var (
	_ progress.Store   = (*ProgressRepository)(nil)
	_ progress.History = (*ProgressRepository)(nil)
)

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a repository that runs its statements inside tx
func (r *ProgressRepository) WithTx(tx *database.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

// GetDay returns the record for (studentID, day), or nil if there is none.
// Inside a transaction the row stays locked until commit on postgres and
// mysql, so instances sharing the database cannot interleave updates.
func (r *ProgressRepository) GetDay(ctx context.Context, studentID int64, day time.Time) (*progress.Record, error) {
	query := `
		SELECT student_id, date, words_practiced, total_attempts, average_score
		FROM student_progress
		WHERE student_id = ? AND date = ?` + r.db.GetDialect().ForUpdate()
	rec, err := scanProgress(r.db.QueryRowContext(ctx, query, studentID, day.Format(dateLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return rec, nil
}

// SaveDay inserts a new day record or updates the existing one
func (r *ProgressRepository) SaveDay(ctx context.Context, rec progress.Record, isNew bool) error {
	date := rec.Date.Format(dateLayout)
	if isNew {
		query := `
			INSERT INTO student_progress (student_id, date, words_practiced, total_attempts, average_score)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := r.db.ExecContext(ctx, query, rec.StudentID, date, rec.WordsPracticed, rec.TotalAttempts, rec.AverageScore); err != nil {
			return fmt.Errorf("failed to insert progress: %w", err)
		}
		return nil
	}

	query := `
		UPDATE student_progress
		SET words_practiced = ?, total_attempts = ?, average_score = ?
		WHERE student_id = ? AND date = ?
	`
	if _, err := r.db.ExecContext(ctx, query, rec.WordsPracticed, rec.TotalAttempts, rec.AverageScore, rec.StudentID, date); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// HasPracticed reports whether the student has a record with words on day
func (r *ProgressRepository) HasPracticed(ctx context.Context, studentID int64, day time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM student_progress WHERE student_id = ? AND date = ? AND words_practiced > 0",
		studentID, day.Format(dateLayout),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check progress: %w", err)
	}
	return count > 0, nil
}

// ListDays returns the student's records from since onwards, newest first.
// A nil since returns the full history.
func (r *ProgressRepository) ListDays(ctx context.Context, studentID int64, since *time.Time) ([]progress.Record, error) {
	query := `
		SELECT student_id, date, words_practiced, total_attempts, average_score
		FROM student_progress
		WHERE student_id = ?
	`
	args := []any{studentID}
	if since != nil {
		query += " AND date >= ?"
		args = append(args, since.Format(dateLayout))
	}
	query += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var records []progress.Record
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanProgress(row rowScanner) (*progress.Record, error) {
	var (
		rec  progress.Record
		date string
	)
	if err := row.Scan(&rec.StudentID, &date, &rec.WordsPracticed, &rec.TotalAttempts, &rec.AverageScore); err != nil {
		return nil, err
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid progress date %q: %w", date, err)
	}
	rec.Date = day
	return &rec, nil
}
