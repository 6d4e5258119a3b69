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

// UserRepository handles database operations for users
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, role, created_at"

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	return user, err
}

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(ctx context.Context, username, email, passwordHash string, role models.Role) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, username, email, passwordHash, string(role), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
	}, nil
}

func (r *UserRepository) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "username = ?", username)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

// ListStudents returns all students, or only those enrolled in classID
func (r *UserRepository) ListStudents(ctx context.Context, classID *int64) ([]models.User, error) {
	if classID != nil {
		query := `
			SELECT u.id, u.username, u.email, u.password_hash, u.role, u.created_at
			FROM users u
			JOIN class_enrollments ce ON ce.student_id = u.id
			WHERE ce.class_id = ? AND u.role = ?
			ORDER BY u.username
		`
		return r.listUsers(ctx, query, *classID, string(models.RoleStudent))
	}
	query := "SELECT " + userColumns + " FROM users WHERE role = ? ORDER BY username"
	return r.listUsers(ctx, query, string(models.RoleStudent))
}

func (r *UserRepository) listUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CountStudents returns how many of ids belong to student accounts
func (r *UserRepository) CountStudents(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := "SELECT COUNT(*) FROM users WHERE role = ? AND id IN (" + inPlaceholders(len(ids)) + ")"
	args := append([]any{string(models.RoleStudent)}, int64Args(ids)...)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}
