package models

import "time"

// Role is the kind of account
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// User represents a student or teacher account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsTeacher checks if the user has the teacher role
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// IsStudent checks if the user has the student role
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}
