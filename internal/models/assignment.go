package models

import "time"

// WordDatabase is a named, predefined list of words
type WordDatabase struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	WordCount   int       `json:"word_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// WordDatabaseWord is one entry of a WordDatabase
type WordDatabaseWord struct {
	ID             int64  `json:"id"`
	WordDatabaseID int64  `json:"word_database_id"`
	WordText       string `json:"word_text"`
	OrderIndex     int    `json:"order_index"`
}

// Assignment is a word list a teacher assigns to students
type Assignment struct {
	ID               int64            `json:"id"`
	TeacherID        int64            `json:"teacher_id"`
	TeacherName      string           `json:"teacher_name,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	WordDatabaseID   *int64           `json:"word_database_id"`
	WordDatabaseName string           `json:"word_database_name,omitempty"`
	DueDate          *time.Time       `json:"due_date"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Words            []AssignmentWord `json:"words"`
	StudentCount     int              `json:"student_count"`
}

// IsOverdue reports whether the due date has passed
func (a *Assignment) IsOverdue(now time.Time) bool {
	return a.DueDate != nil && now.After(*a.DueDate)
}

// AssignmentWord is one word of an assignment
type AssignmentWord struct {
	ID         int64  `json:"id"`
	WordText   string `json:"word_text"`
	OrderIndex int    `json:"order_index"`
}

// AssignmentStudent links a student to an assignment
type AssignmentStudent struct {
	AssignmentID int64      `json:"assignment_id"`
	StudentID    int64      `json:"student_id"`
	StudentName  string     `json:"student_name"`
	AssignedAt   time.Time  `json:"assigned_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// AssignmentSubmission is the latest recording a student made for an assignment word
type AssignmentSubmission struct {
	AssignmentID int64     `json:"assignment_id"`
	StudentID    int64     `json:"student_id"`
	WordText     string    `json:"word_text"`
	RecordingID  *int64    `json:"recording_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Score        *float64  `json:"score,omitempty"`
}
