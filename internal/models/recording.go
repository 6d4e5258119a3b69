package models

import (
	"time"

	"speakwell/internal/feedback"
)

// RecordingStatus tracks whether a recording has feedback
type RecordingStatus string

const (
	StatusPending  RecordingStatus = "pending"
	StatusReviewed RecordingStatus = "reviewed"
)

// Valid reports whether s is a known status
func (s RecordingStatus) Valid() bool {
	return s == StatusPending || s == StatusReviewed
}

// Recording is one audio attempt at a word by a student
type Recording struct {
	ID                  int64                 `json:"id"`
	StudentID           int64                 `json:"student_id"`
	StudentName         string                `json:"student_name,omitempty"`
	WordText            string                `json:"word_text"`
	AudioFilePath       string                `json:"audio_file_path"`
	AutomatedScores     *feedback.ScoreReport `json:"automated_scores"`
	TeacherFeedback     string                `json:"teacher_feedback"`
	TeacherGrade        string                `json:"teacher_grade"`
	ReviewedBy          *int64                `json:"reviewed_by"`
	Status              RecordingStatus       `json:"status"`
	FlagForPractice     bool                  `json:"flag_for_practice"`
	IsAutomatedFeedback bool                  `json:"is_automated_feedback"`
	CreatedAt           time.Time             `json:"created_at"`
	ReviewedAt          *time.Time            `json:"reviewed_at"`
}

// Score returns the stored pronunciation score, 0 when the recording
// could not be assessed
func (r *Recording) Score() float64 {
	return r.AutomatedScores.PronunciationOrZero()
}

// StudentStats is a student with their recording totals
type StudentStats struct {
	User
	RecordingCount int     `json:"recording_count"`
	AverageScore   float64 `json:"average_score"`
}

// WordStat is a word with how often it was practiced and how well
type WordStat struct {
	WordText     string  `json:"word_text"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"average_score"`
}
