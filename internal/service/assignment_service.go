package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/models"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/validation"
)

const (
	MinAssignmentWords = 20
	MaxAssignmentWords = 40
)

// AssignmentService manages teacher assignments and the word databases they
// draw from
type AssignmentService struct {
	db          *database.DB
	assignments *repository.AssignmentRepository
	users       *repository.UserRepository
	words       *repository.WordRepository
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(db *database.DB, assignments *repository.AssignmentRepository, users *repository.UserRepository, words *repository.WordRepository) *AssignmentService {
	return &AssignmentService{db: db, assignments: assignments, users: users, words: words}
}

// CreateAssignmentRequest holds the fields of a new assignment
type CreateAssignmentRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	WordDatabaseID *int64     `json:"word_database_id"`
	DueDate        *time.Time `json:"due_date"`
	Words          []string   `json:"words"`
	StudentIDs     []int64    `json:"student_ids"`
}

// UpdateAssignmentRequest changes the non-nil fields
type UpdateAssignmentRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// Create validates and stores a new assignment. Words are lowercased,
// trimmed and deduplicated and must number 20 to 40. Every student ID must
// belong to a student.
func (s *AssignmentService) Create(ctx context.Context, teacherID int64, req CreateAssignmentRequest) (*models.Assignment, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validation.ValidationError{Field: "title", Message: "title is required"}
	}

	words := make([]string, 0, len(req.Words))
	seen := make(map[string]bool, len(req.Words))
	for _, w := range req.Words {
		if err := validation.ValidateWord(w); err != nil {
			return nil, err
		}
		w = strings.ToLower(strings.TrimSpace(w))
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	if len(words) < MinAssignmentWords || len(words) > MaxAssignmentWords {
		return nil, validation.ValidationError{
			Field:   "words",
			Message: fmt.Sprintf("Assignment must contain %d-%d words. Got %d words.", MinAssignmentWords, MaxAssignmentWords, len(words)),
		}
	}

	studentIDs := slices.Clone(req.StudentIDs)
	slices.Sort(studentIDs)
	studentIDs = slices.Compact(studentIDs)
	if len(studentIDs) == 0 {
		return nil, validation.ValidationError{Field: "student_ids", Message: "At least one student must be assigned"}
	}
	count, err := s.users.CountStudents(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	if count != len(studentIDs) {
		return nil, validation.ValidationError{Field: "student_ids", Message: "One or more invalid student IDs"}
	}

	if req.WordDatabaseID != nil {
		db, err := s.words.GetWordDatabase(ctx, *req.WordDatabaseID)
		if err != nil {
			return nil, err
		}
		if db == nil {
			return nil, fmt.Errorf("word database %w", ErrNotFound)
		}
	}

	a := &models.Assignment{
		TeacherID:      teacherID,
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		WordDatabaseID: req.WordDatabaseID,
		DueDate:        req.DueDate,
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		return s.assignments.WithTx(tx).CreateAssignment(ctx, a, words, studentIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.assignments.GetAssignment(ctx, a.ID)
}

// List returns the teacher's assignments
func (s *AssignmentService) List(ctx context.Context, teacherID int64) ([]models.Assignment, error) {
	return s.assignments.ListTeacherAssignments(ctx, teacherID)
}

// Get returns an assignment owned by the teacher
func (s *AssignmentService) Get(ctx context.Context, teacherID, assignmentID int64) (*models.Assignment, error) {
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	// Another teacher's assignment is reported as missing.
	if a == nil || a.TeacherID != teacherID {
		return nil, fmt.Errorf("assignment %w", ErrNotFound)
	}
	return a, nil
}

// Update changes title, description or due date
func (s *AssignmentService) Update(ctx context.Context, teacherID, assignmentID int64, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if _, err := s.Get(ctx, teacherID, assignmentID); err != nil {
		return nil, err
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return nil, validation.ValidationError{Field: "title", Message: "title is required"}
		}
		req.Title = &t
	}
	if err := s.assignments.UpdateAssignment(ctx, assignmentID, req.Title, req.Description, req.DueDate); err != nil {
		return nil, err
	}
	return s.assignments.GetAssignment(ctx, assignmentID)
}

// Delete removes an assignment with its words, students and submissions
func (s *AssignmentService) Delete(ctx context.Context, teacherID, assignmentID int64) error {
	if _, err := s.Get(ctx, teacherID, assignmentID); err != nil {
		return err
	}
	return s.assignments.DeleteAssignment(ctx, assignmentID)
}

// StudentProgress is one student's completion of an assignment
type StudentProgress struct {
	StudentID            int64      `json:"student_id"`
	StudentName          string     `json:"student_name"`
	TotalWords           int        `json:"total_words"`
	CompletedWords       int        `json:"completed_words"`
	CompletionPercentage float64    `json:"completion_percentage"`
	AssignedAt           time.Time  `json:"assigned_at"`
	CompletedAt          *time.Time `json:"completed_at"`
}

// Progress lists every assigned student's completion
func (s *AssignmentService) Progress(ctx context.Context, teacherID, assignmentID int64) ([]StudentProgress, error) {
	a, err := s.Get(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	students, err := s.assignments.ListAssignmentStudents(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	total := len(a.Words)
	out := make([]StudentProgress, 0, len(students))
	for _, st := range students {
		completed, err := s.assignments.CountSubmissions(ctx, assignmentID, st.StudentID)
		if err != nil {
			return nil, err
		}
		out = append(out, StudentProgress{
			StudentID:            st.StudentID,
			StudentName:          st.StudentName,
			TotalWords:           total,
			CompletedWords:       completed,
			CompletionPercentage: progress.CompletionPercentage(completed, total),
			AssignedAt:           st.AssignedAt,
			CompletedAt:          st.CompletedAt,
		})
	}
	return out, nil
}

// StudentDetail is the word-by-word progress of one assigned student
func (s *AssignmentService) StudentDetail(ctx context.Context, teacherID, assignmentID, studentID int64) (*AssignmentDetail, error) {
	a, err := s.Get(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	link, err := s.assignments.GetAssignmentStudent(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("student assignment %w", ErrNotFound)
	}
	return assignmentDetail(ctx, s.assignments, a, studentID)
}

// WordDatabases lists the predefined word lists
func (s *AssignmentService) WordDatabases(ctx context.Context) ([]models.WordDatabase, error) {
	return s.words.ListWordDatabases(ctx)
}

// WordDatabaseWords pages through one word list
func (s *AssignmentService) WordDatabaseWords(ctx context.Context, databaseID int64, offset, limit int) ([]models.WordDatabaseWord, error) {
	db, err := s.words.GetWordDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, fmt.Errorf("word database %w", ErrNotFound)
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return s.words.ListWordDatabaseWords(ctx, databaseID, offset, limit)
}

// WordProgress is one assignment word and the student's submission for it
type WordProgress struct {
	WordText    string     `json:"word_text"`
	OrderIndex  int        `json:"order_index"`
	Submitted   bool       `json:"submitted"`
	RecordingID *int64     `json:"recording_id"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Score       *float64   `json:"score,omitempty"`
}

// AssignmentDetail is a student's word-by-word progress on an assignment
type AssignmentDetail struct {
	AssignmentID         int64          `json:"assignment_id"`
	AssignmentTitle      string         `json:"assignment_title"`
	StudentID            int64          `json:"student_id"`
	TotalWords           int            `json:"total_words"`
	CompletedWords       int            `json:"completed_words"`
	CompletionPercentage float64        `json:"completion_percentage"`
	CompletedWordTexts   []string       `json:"completed_word_texts"`
	Words                []WordProgress `json:"words"`
}

func assignmentDetail(ctx context.Context, repo *repository.AssignmentRepository, a *models.Assignment, studentID int64) (*AssignmentDetail, error) {
	subs, err := repo.ListSubmissions(ctx, a.ID, studentID)
	if err != nil {
		return nil, err
	}
	byWord := make(map[string]models.AssignmentSubmission, len(subs))
	for _, sub := range subs {
		byWord[sub.WordText] = sub
	}

	d := &AssignmentDetail{
		AssignmentID:       a.ID,
		AssignmentTitle:    a.Title,
		StudentID:          studentID,
		TotalWords:         len(a.Words),
		CompletedWordTexts: []string{},
		Words:              make([]WordProgress, 0, len(a.Words)),
	}
	for _, w := range a.Words {
		wp := WordProgress{WordText: w.WordText, OrderIndex: w.OrderIndex}
		if sub, ok := byWord[w.WordText]; ok {
			at := sub.SubmittedAt
			wp.Submitted = true
			wp.RecordingID = sub.RecordingID
			wp.SubmittedAt = &at
			wp.Score = sub.Score
			d.CompletedWords++
			d.CompletedWordTexts = append(d.CompletedWordTexts, w.WordText)
		}
		d.Words = append(d.Words, wp)
	}
	d.CompletionPercentage = progress.CompletionPercentage(d.CompletedWords, d.TotalWords)
	return d, nil
}
