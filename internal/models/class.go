package models

import "time"

// Class is a teacher's group of students
type Class struct {
	ID           int64     `json:"id"`
	TeacherID    int64     `json:"teacher_id"`
	ClassName    string    `json:"class_name"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	StudentCount int       `json:"student_count"`
}
