package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/feedback"
	"speakwell/internal/models"
)

// RecordingRepository handles database operations for recordings
type RecordingRepository struct {
	db database.DBTX
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db database.DBTX) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// WithTx returns a repository that runs its statements inside tx
func (r *RecordingRepository) WithTx(tx *database.Tx) *RecordingRepository {
	return &RecordingRepository{db: tx}
}

const recordingColumns = `r.id, r.student_id, COALESCE(u.username, ''), r.word_text, r.audio_file_path,
	r.automated_scores, r.teacher_feedback, r.teacher_grade, r.reviewed_by, r.status,
	r.flag_for_practice, r.is_automated_feedback, r.created_at, r.reviewed_at`

const recordingFrom = " FROM recordings r LEFT JOIN users u ON u.id = r.student_id"

func scanRecording(row rowScanner) (*models.Recording, error) {
	var (
		rec        models.Recording
		scores     sql.NullString
		reviewedBy sql.NullInt64
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.StudentName,
		&rec.WordText,
		&rec.AudioFilePath,
		&scores,
		&rec.TeacherFeedback,
		&rec.TeacherGrade,
		&reviewedBy,
		&rec.Status,
		&rec.FlagForPractice,
		&rec.IsAutomatedFeedback,
		&rec.CreatedAt,
		&reviewedAt,
	)
	if err != nil {
		return nil, err
	}

	if scores.Valid && scores.String != "" {
		var report feedback.ScoreReport
		if err := json.Unmarshal([]byte(scores.String), &report); err != nil {
			return nil, fmt.Errorf("invalid automated scores for recording %d: %w", rec.ID, err)
		}
		rec.AutomatedScores = &report
	}
	rec.ReviewedBy = int64Ptr(reviewedBy)
	rec.ReviewedAt = timePtr(reviewedAt)
	return &rec, nil
}

// CreateRecording inserts rec and sets its ID
func (r *RecordingRepository) CreateRecording(ctx context.Context, rec *models.Recording) error {
	var scores sql.NullString
	var score *float64
	if rec.AutomatedScores != nil {
		raw, err := json.Marshal(rec.AutomatedScores)
		if err != nil {
			return fmt.Errorf("failed to encode automated scores: %w", err)
		}
		scores = sql.NullString{String: string(raw), Valid: true}
		if rec.AutomatedScores.Assessed() {
			s := rec.AutomatedScores.PronunciationOrZero()
			score = &s
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO recordings (
			student_id, word_text, audio_file_path, automated_scores, pronunciation_score,
			teacher_feedback, teacher_grade, reviewed_by, status, flag_for_practice,
			is_automated_feedback, created_at, reviewed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		rec.StudentID,
		rec.WordText,
		rec.AudioFilePath,
		scores,
		nullFloat64(score),
		rec.TeacherFeedback,
		rec.TeacherGrade,
		nullInt64(rec.ReviewedBy),
		string(rec.Status),
		rec.FlagForPractice,
		rec.IsAutomatedFeedback,
		rec.CreatedAt,
		nullTime(rec.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	rec.ID = id
	return nil
}

// GetRecordingByID retrieves a recording by ID
func (r *RecordingRepository) GetRecordingByID(ctx context.Context, id int64) (*models.Recording, error) {
	query := "SELECT " + recordingColumns + recordingFrom + " WHERE r.id = ?"
	rec, err := scanRecording(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	return rec, nil
}

// RecordingFilter narrows recording listings. Zero values mean no filter.
type RecordingFilter struct {
	StudentID int64
	ClassID   *int64
	Status    models.RecordingStatus
	Flagged   bool
	Limit     int
}

func (f RecordingFilter) where(d database.Dialect) (string, []any) {
	clause := " WHERE 1 = 1"
	var args []any
	if f.StudentID != 0 {
		clause += " AND r.student_id = ?"
		args = append(args, f.StudentID)
	}
	if f.ClassID != nil {
		clause += " AND r.student_id IN (SELECT student_id FROM class_enrollments WHERE class_id = ?)"
		args = append(args, *f.ClassID)
	}
	if f.Status != "" {
		clause += " AND r.status = ?"
		args = append(args, string(f.Status))
	}
	if f.Flagged {
		clause += " AND r.flag_for_practice = " + d.BoolValue(true)
	}
	return clause, args
}

// ListRecordings returns recordings matching filter, newest first
func (r *RecordingRepository) ListRecordings(ctx context.Context, filter RecordingFilter) ([]models.Recording, error) {
	where, args := filter.where(r.db.GetDialect())
	query := "SELECT " + recordingColumns + recordingFrom + where + " ORDER BY r.created_at DESC, r.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	var recordings []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		recordings = append(recordings, *rec)
	}
	return recordings, rows.Err()
}

// Review is a teacher's decision on a recording
type Review struct {
	Feedback        string
	Grade           string
	ReviewedBy      int64
	FlagForPractice bool
	ReviewedAt      time.Time
}

// SaveReview stores teacher feedback and marks the recording reviewed
func (r *RecordingRepository) SaveReview(ctx context.Context, recordingID int64, review Review) error {
	query := `
		UPDATE recordings
		SET teacher_feedback = ?, teacher_grade = ?, reviewed_by = ?, status = ?,
			flag_for_practice = ?, is_automated_feedback = ?, reviewed_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		review.Feedback,
		review.Grade,
		review.ReviewedBy,
		string(models.StatusReviewed),
		review.FlagForPractice,
		false,
		review.ReviewedAt,
		recordingID,
	)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// StudentStats returns each student with their recording count and average
// pronunciation score, optionally limited to a class
func (r *RecordingRepository) StudentStats(ctx context.Context, classID *int64) ([]models.StudentStats, error) {
	query := `
		SELECT u.id, u.username, u.email, u.role, u.created_at,
			COUNT(r.id), COALESCE(AVG(r.pronunciation_score), 0)
		FROM users u
		LEFT JOIN recordings r ON r.student_id = u.id
		WHERE u.role = ?
	`
	args := []any{string(models.RoleStudent)}
	if classID != nil {
		query += " AND u.id IN (SELECT student_id FROM class_enrollments WHERE class_id = ?)"
		args = append(args, *classID)
	}
	query += " GROUP BY u.id, u.username, u.email, u.role, u.created_at ORDER BY u.username"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query student stats: %w", err)
	}
	defer rows.Close()

	var stats []models.StudentStats
	for rows.Next() {
		var s models.StudentStats
		if err := rows.Scan(
			&s.ID,
			&s.Username,
			&s.Email,
			&s.Role,
			&s.CreatedAt,
			&s.RecordingCount,
			&s.AverageScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan student stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Totals counts recordings, pending recordings and the mean assessed score
func (r *RecordingRepository) Totals(ctx context.Context, classID *int64) (total, pending int, average float64, err error) {
	where, args := RecordingFilter{ClassID: classID}.where(r.db.GetDialect())
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN r.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(r.pronunciation_score), 0)
		FROM recordings r` + where
	args = append([]any{string(models.StatusPending)}, args...)

	if err = r.db.QueryRowContext(ctx, query, args...).Scan(&total, &pending, &average); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to compute totals: %w", err)
	}
	return total, pending, average, nil
}

// MostPracticedWords returns words by recording count, highest first
func (r *RecordingRepository) MostPracticedWords(ctx context.Context, classID *int64, limit int) ([]models.WordStat, error) {
	where, args := RecordingFilter{ClassID: classID}.where(r.db.GetDialect())
	query := `
		SELECT r.word_text, COUNT(*) AS attempts, COALESCE(AVG(r.pronunciation_score), 0)
		FROM recordings r` + where + `
		GROUP BY r.word_text
		ORDER BY attempts DESC, r.word_text
		LIMIT ?`
	return r.wordStats(ctx, query, append(args, limit)...)
}

// ChallengingWords returns assessed words by average score, lowest first
func (r *RecordingRepository) ChallengingWords(ctx context.Context, classID *int64, limit int) ([]models.WordStat, error) {
	where, args := RecordingFilter{ClassID: classID}.where(r.db.GetDialect())
	query := `
		SELECT r.word_text, COUNT(*), AVG(r.pronunciation_score) AS avg_score
		FROM recordings r` + where + ` AND r.pronunciation_score IS NOT NULL
		GROUP BY r.word_text
		ORDER BY avg_score ASC, r.word_text
		LIMIT ?`
	return r.wordStats(ctx, query, append(args, limit)...)
}

func (r *RecordingRepository) wordStats(ctx context.Context, query string, args ...any) ([]models.WordStat, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query word stats: %w", err)
	}
	defer rows.Close()

	var stats []models.WordStat
	for rows.Next() {
		var s models.WordStat
		if err := rows.Scan(&s.WordText, &s.Attempts, &s.AverageScore); err != nil {
			return nil, fmt.Errorf("failed to scan word stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
