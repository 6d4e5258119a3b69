package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/models"
)

// AssignmentRepository handles assignments, their words, students and submissions
type AssignmentRepository struct {
	db database.DBTX
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db database.DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// WithTx returns a repository that runs its statements inside tx
func (r *AssignmentRepository) WithTx(tx *database.Tx) *AssignmentRepository {
	return &AssignmentRepository{db: tx}
}

// CreateAssignment inserts a and its words and students. Callers should run it
// inside a transaction.
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, a *models.Assignment, words []string, studentIDs []int64) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO assignments (teacher_id, title, description, word_database_id, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		a.TeacherID, a.Title, a.Description, nullInt64(a.WordDatabaseID), nullTime(a.DueDate), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now

	a.Words = make([]models.AssignmentWord, 0, len(words))
	for i, word := range words {
		wordID, err := r.db.ExecReturningID(ctx,
			"INSERT INTO assignment_words (assignment_id, word_text, order_index) VALUES (?, ?, ?)",
			id, word, i,
		)
		if err != nil {
			return fmt.Errorf("failed to add assignment word: %w", err)
		}
		a.Words = append(a.Words, models.AssignmentWord{ID: wordID, WordText: word, OrderIndex: i})
	}

	for _, studentID := range studentIDs {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO assignment_students (assignment_id, student_id, assigned_at) VALUES (?, ?, ?)",
			id, studentID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to assign student: %w", err)
		}
	}
	a.StudentCount = len(studentIDs)
	return nil
}

const assignmentQuery = `
	SELECT a.id, a.teacher_id, COALESCE(u.username, ''), a.title, a.description,
		a.word_database_id, COALESCE(d.name, ''), a.due_date, a.created_at, a.updated_at,
		(SELECT COUNT(*) FROM assignment_students s WHERE s.assignment_id = a.id)
	FROM assignments a
	LEFT JOIN users u ON u.id = a.teacher_id
	LEFT JOIN word_databases d ON d.id = a.word_database_id`

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var (
		a              models.Assignment
		wordDatabaseID sql.NullInt64
		dueDate        sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.TeacherID,
		&a.TeacherName,
		&a.Title,
		&a.Description,
		&wordDatabaseID,
		&a.WordDatabaseName,
		&dueDate,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.StudentCount,
	)
	if err != nil {
		return nil, err
	}
	a.WordDatabaseID = int64Ptr(wordDatabaseID)
	a.DueDate = timePtr(dueDate)
	return &a, nil
}

// GetAssignment retrieves an assignment with its words
func (r *AssignmentRepository) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx, assignmentQuery+" WHERE a.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if a.Words, err = r.ListWords(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListTeacherAssignments returns a teacher's assignments, newest first
func (r *AssignmentRepository) ListTeacherAssignments(ctx context.Context, teacherID int64) ([]models.Assignment, error) {
	return r.listAssignments(ctx, assignmentQuery+" WHERE a.teacher_id = ? ORDER BY a.created_at DESC, a.id DESC", teacherID)
}

// ListStudentAssignments returns the assignments given to a student, newest first
func (r *AssignmentRepository) ListStudentAssignments(ctx context.Context, studentID int64) ([]models.Assignment, error) {
	query := assignmentQuery + `
		WHERE a.id IN (SELECT assignment_id FROM assignment_students WHERE student_id = ?)
		ORDER BY a.created_at DESC, a.id DESC`
	return r.listAssignments(ctx, query, studentID)
}

func (r *AssignmentRepository) listAssignments(ctx context.Context, query string, args ...any) ([]models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}

	var assignments []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Words are loaded after the cursor is closed so a single-connection
	// transaction is never asked to run two queries at once.
	for i := range assignments {
		if assignments[i].Words, err = r.ListWords(ctx, assignments[i].ID); err != nil {
			return nil, err
		}
	}
	return assignments, nil
}

// ListWords returns an assignment's words in order
func (r *AssignmentRepository) ListWords(ctx context.Context, assignmentID int64) ([]models.AssignmentWord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, word_text, order_index FROM assignment_words WHERE assignment_id = ? ORDER BY order_index, id",
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment words: %w", err)
	}
	defer rows.Close()

	words := []models.AssignmentWord{}
	for rows.Next() {
		var w models.AssignmentWord
		if err := rows.Scan(&w.ID, &w.WordText, &w.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan assignment word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// HasWord reports whether word is part of the assignment
func (r *AssignmentRepository) HasWord(ctx context.Context, assignmentID int64, word string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assignment_words WHERE assignment_id = ? AND word_text = ?",
		assignmentID, word,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check assignment word: %w", err)
	}
	return count > 0, nil
}

// UpdateAssignment changes the non-nil fields
func (r *AssignmentRepository) UpdateAssignment(ctx context.Context, id int64, title, description *string, dueDate *time.Time) error {
	query := "UPDATE assignments SET updated_at = ?"
	args := []any{time.Now().UTC()}
	if title != nil {
		query += ", title = ?"
		args = append(args, *title)
	}
	if description != nil {
		query += ", description = ?"
		args = append(args, *description)
	}
	if dueDate != nil {
		query += ", due_date = ?"
		args = append(args, *dueDate)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

// DeleteAssignment deletes an assignment and, by cascade, its words, students and submissions
func (r *AssignmentRepository) DeleteAssignment(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// GetAssignmentStudent returns the link between a student and an assignment,
// or nil when the student was not assigned
func (r *AssignmentRepository) GetAssignmentStudent(ctx context.Context, assignmentID, studentID int64) (*models.AssignmentStudent, error) {
	query := `
		SELECT s.assignment_id, s.student_id, COALESCE(u.username, ''), s.assigned_at, s.completed_at
		FROM assignment_students s
		LEFT JOIN users u ON u.id = s.student_id
		WHERE s.assignment_id = ? AND s.student_id = ?
	`
	as, err := scanAssignmentStudent(r.db.QueryRowContext(ctx, query, assignmentID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment student: %w", err)
	}
	return as, nil
}

// ListAssignmentStudents returns every student linked to an assignment
func (r *AssignmentRepository) ListAssignmentStudents(ctx context.Context, assignmentID int64) ([]models.AssignmentStudent, error) {
	query := `
		SELECT s.assignment_id, s.student_id, COALESCE(u.username, ''), s.assigned_at, s.completed_at
		FROM assignment_students s
		LEFT JOIN users u ON u.id = s.student_id
		WHERE s.assignment_id = ?
		ORDER BY u.username
	`
	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment students: %w", err)
	}
	defer rows.Close()

	var students []models.AssignmentStudent
	for rows.Next() {
		as, err := scanAssignmentStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment student: %w", err)
		}
		students = append(students, *as)
	}
	return students, rows.Err()
}

func scanAssignmentStudent(row rowScanner) (*models.AssignmentStudent, error) {
	var (
		as          models.AssignmentStudent
		completedAt sql.NullTime
	)
	if err := row.Scan(&as.AssignmentID, &as.StudentID, &as.StudentName, &as.AssignedAt, &completedAt); err != nil {
		return nil, err
	}
	as.CompletedAt = timePtr(completedAt)
	return &as, nil
}

// SaveSubmission records recordingID as the student's latest attempt at word.
// A re-recording replaces the earlier submission.
func (r *AssignmentRepository) SaveSubmission(ctx context.Context, assignmentID, studentID int64, word string, recordingID int64, at time.Time) error {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assignment_submissions WHERE assignment_id = ? AND student_id = ? AND word_text = ?",
		assignmentID, studentID, word,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check submission: %w", err)
	}

	if count > 0 {
		_, err = r.db.ExecContext(ctx, `
			UPDATE assignment_submissions SET recording_id = ?, submitted_at = ?
			WHERE assignment_id = ? AND student_id = ? AND word_text = ?`,
			recordingID, at, assignmentID, studentID, word,
		)
	} else {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO assignment_submissions (assignment_id, student_id, word_text, recording_id, submitted_at)
			VALUES (?, ?, ?, ?, ?)`,
			assignmentID, studentID, word, recordingID, at,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// CountSubmissions returns how many distinct words the student has submitted
func (r *AssignmentRepository) CountSubmissions(ctx context.Context, assignmentID, studentID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assignment_submissions WHERE assignment_id = ? AND student_id = ?",
		assignmentID, studentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// ListSubmissions returns the student's submissions with the score of each
// linked recording
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID, studentID int64) ([]models.AssignmentSubmission, error) {
	query := `
		SELECT s.assignment_id, s.student_id, s.word_text, s.recording_id, s.submitted_at, rec.pronunciation_score
		FROM assignment_submissions s
		LEFT JOIN recordings rec ON rec.id = s.recording_id
		WHERE s.assignment_id = ? AND s.student_id = ?
	`
	rows, err := r.db.QueryContext(ctx, query, assignmentID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.AssignmentSubmission
	for rows.Next() {
		var (
			s           models.AssignmentSubmission
			recordingID sql.NullInt64
			score       sql.NullFloat64
		)
		if err := rows.Scan(&s.AssignmentID, &s.StudentID, &s.WordText, &recordingID, &s.SubmittedAt, &score); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		s.RecordingID = int64Ptr(recordingID)
		s.Score = float64Ptr(score)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// MarkCompleted stamps completed_at the first time a student finishes an assignment
func (r *AssignmentRepository) MarkCompleted(ctx context.Context, assignmentID, studentID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE assignment_students SET completed_at = ? WHERE assignment_id = ? AND student_id = ? AND completed_at IS NULL",
		at, assignmentID, studentID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark assignment completed: %w", err)
	}
	return nil
}
