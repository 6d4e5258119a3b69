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

// ClassRepository handles database operations for classes and enrollments
type ClassRepository struct {
	db database.DBTX
}

// NewClassRepository creates a new class repository
func NewClassRepository(db database.DBTX) *ClassRepository {
	return &ClassRepository{db: db}
}

// CreateClass creates a class owned by teacherID
func (r *ClassRepository) CreateClass(ctx context.Context, teacherID int64, name, description string) (*models.Class, error) {
	now := time.Now().UTC()
	query := "INSERT INTO classes (teacher_id, class_name, description, created_at) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, teacherID, name, description, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create class: %w", err)
	}

	return &models.Class{
		ID:          id,
		TeacherID:   teacherID,
		ClassName:   name,
		Description: description,
		CreatedAt:   now,
	}, nil
}

// GetClassByID retrieves a class with its student count
func (r *ClassRepository) GetClassByID(ctx context.Context, id int64) (*models.Class, error) {
	query := `
		SELECT c.id, c.teacher_id, c.class_name, c.description, c.created_at,
			(SELECT COUNT(*) FROM class_enrollments ce WHERE ce.class_id = c.id)
		FROM classes c
		WHERE c.id = ?
	`
	class := &models.Class{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&class.ID,
		&class.TeacherID,
		&class.ClassName,
		&class.Description,
		&class.CreatedAt,
		&class.StudentCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return class, nil
}

// ListClasses returns a teacher's classes with student counts
func (r *ClassRepository) ListClasses(ctx context.Context, teacherID int64) ([]models.Class, error) {
	query := `
		SELECT c.id, c.teacher_id, c.class_name, c.description, c.created_at,
			(SELECT COUNT(*) FROM class_enrollments ce WHERE ce.class_id = c.id)
		FROM classes c
		WHERE c.teacher_id = ?
		ORDER BY c.created_at DESC, c.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var classes []models.Class
	for rows.Next() {
		var class models.Class
		if err := rows.Scan(
			&class.ID,
			&class.TeacherID,
			&class.ClassName,
			&class.Description,
			&class.CreatedAt,
			&class.StudentCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

// EnrollStudent adds a student to a class. Enrolling twice is a no-op.
func (r *ClassRepository) EnrollStudent(ctx context.Context, classID, studentID int64) error {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM class_enrollments WHERE class_id = ? AND student_id = ?",
		classID, studentID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO class_enrollments (class_id, student_id, enrolled_at) VALUES (?, ?, ?)",
		classID, studentID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	return nil
}
