package service

import (
	"context"
	"fmt"
	"time"

	"speakwell/internal/models"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/validation"
)

const recentRecordingsLimit = 10

// StudentService serves a student's own recordings, progress and assignments
type StudentService struct {
	recordings  *repository.RecordingRepository
	progress    *repository.ProgressRepository
	assignments *repository.AssignmentRepository
	tracker     *progress.Tracker
	now         func() time.Time
}

// NewStudentService creates a new student service
func NewStudentService(recordings *repository.RecordingRepository, progressRepo *repository.ProgressRepository, assignments *repository.AssignmentRepository, tracker *progress.Tracker) *StudentService {
	return &StudentService{
		recordings:  recordings,
		progress:    progressRepo,
		assignments: assignments,
		tracker:     tracker,
		now:         time.Now,
	}
}

// ParseStatus validates an optional recording status filter
func ParseStatus(status string) (models.RecordingStatus, error) {
	s := models.RecordingStatus(status)
	if s != "" && !s.Valid() {
		return "", validation.ValidationError{Field: "status", Message: "Status must be 'pending' or 'reviewed'"}
	}
	return s, nil
}

// ListRecordings returns the student's recordings, newest first. flagged
// limits the list to recordings marked for more practice.
func (s *StudentService) ListRecordings(ctx context.Context, studentID int64, status string, flagged bool) ([]models.Recording, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.recordings.ListRecordings(ctx, repository.RecordingFilter{StudentID: studentID, Status: st, Flagged: flagged})
}

// RecentRecording is the short form of a recording shown with progress
type RecentRecording struct {
	ID        int64                  `json:"id"`
	WordText  string                 `json:"word_text"`
	Score     float64                `json:"score"`
	Grade     string                 `json:"grade"`
	Status    models.RecordingStatus `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
}

// ProgressReport is a period summary, the streak and the latest attempts
type ProgressReport struct {
	progress.Overview
	Period           progress.Period   `json:"period"`
	RecentRecordings []RecentRecording `json:"recent_recordings"`
}

// Progress summarizes the student's practice over period
func (s *StudentService) Progress(ctx context.Context, studentID int64, period string) (*ProgressReport, error) {
	p := progress.Period(period)
	if p == "" {
		p = progress.PeriodWeek
	}

	overview, err := s.tracker.Overview(ctx, s.progress, studentID, p)
	if err != nil {
		return nil, err
	}

	recent, err := s.recordings.ListRecordings(ctx, repository.RecordingFilter{StudentID: studentID, Limit: recentRecordingsLimit})
	if err != nil {
		return nil, err
	}

	report := &ProgressReport{Overview: overview, Period: p, RecentRecordings: make([]RecentRecording, 0, len(recent))}
	for _, r := range recent {
		report.RecentRecordings = append(report.RecentRecordings, RecentRecording{
			ID:        r.ID,
			WordText:  r.WordText,
			Score:     r.Score(),
			Grade:     r.TeacherGrade,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}
	return report, nil
}

// StudentAssignment is an assignment with the student's completion
type StudentAssignment struct {
	models.Assignment
	TotalWords           int        `json:"total_words"`
	CompletedWords       int        `json:"completed_words"`
	CompletionPercentage float64    `json:"completion_percentage"`
	CompletedWordTexts   []string   `json:"completed_word_texts"`
	IsOverdue            bool       `json:"is_overdue"`
	CompletedAt          *time.Time `json:"completed_at"`
}

// Assignments lists every assignment given to the student
func (s *StudentService) Assignments(ctx context.Context, studentID int64) ([]StudentAssignment, error) {
	assignments, err := s.assignments.ListStudentAssignments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]StudentAssignment, 0, len(assignments))
	for i := range assignments {
		sa, err := s.studentAssignment(ctx, &assignments[i], studentID)
		if err != nil {
			return nil, err
		}
		out = append(out, *sa)
	}
	return out, nil
}

// Assignment returns one of the student's assignments
func (s *StudentService) Assignment(ctx context.Context, studentID, assignmentID int64) (*StudentAssignment, error) {
	a, err := s.assignedTo(ctx, studentID, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.studentAssignment(ctx, a, studentID)
}

// AssignmentProgress returns the word-by-word progress on one assignment
func (s *StudentService) AssignmentProgress(ctx context.Context, studentID, assignmentID int64) (*AssignmentDetail, error) {
	a, err := s.assignedTo(ctx, studentID, assignmentID)
	if err != nil {
		return nil, err
	}
	return assignmentDetail(ctx, s.assignments, a, studentID)
}

func (s *StudentService) assignedTo(ctx context.Context, studentID, assignmentID int64) (*models.Assignment, error) {
	link, err := s.assignments.GetAssignmentStudent(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("assignment %w", ErrNotFound)
	}
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("assignment %w", ErrNotFound)
	}
	return a, nil
}

func (s *StudentService) studentAssignment(ctx context.Context, a *models.Assignment, studentID int64) (*StudentAssignment, error) {
	detail, err := assignmentDetail(ctx, s.assignments, a, studentID)
	if err != nil {
		return nil, err
	}
	link, err := s.assignments.GetAssignmentStudent(ctx, a.ID, studentID)
	if err != nil {
		return nil, err
	}

	sa := &StudentAssignment{
		Assignment:           *a,
		TotalWords:           detail.TotalWords,
		CompletedWords:       detail.CompletedWords,
		CompletionPercentage: detail.CompletionPercentage,
		CompletedWordTexts:   detail.CompletedWordTexts,
		IsOverdue:            a.IsOverdue(s.now()),
	}
	if link != nil {
		sa.CompletedAt = link.CompletedAt
	}
	return sa, nil
}
