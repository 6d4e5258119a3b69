package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"speakwell/internal/feedback"
	"speakwell/internal/models"
	"speakwell/internal/observe"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/validation"
)

const analyticsWordLimit = 10

// TeacherService covers reviewing submissions, students, analytics and classes
type TeacherService struct {
	recordings *repository.RecordingRepository
	users      *repository.UserRepository
	classes    *repository.ClassRepository
	email      *EmailService
	metrics    *observe.Metrics
	now        func() time.Time
}

// NewTeacherService creates a new teacher service. email may be disabled.
func NewTeacherService(recordings *repository.RecordingRepository, users *repository.UserRepository, classes *repository.ClassRepository, email *EmailService, metrics *observe.Metrics) *TeacherService {
	return &TeacherService{
		recordings: recordings,
		users:      users,
		classes:    classes,
		email:      email,
		metrics:    metrics,
		now:        time.Now,
	}
}

// ownedClass checks that classID, when given, belongs to the teacher
func (s *TeacherService) ownedClass(ctx context.Context, teacherID int64, classID *int64) error {
	if classID == nil {
		return nil
	}
	class, err := s.classes.GetClassByID(ctx, *classID)
	if err != nil {
		return err
	}
	if class == nil || class.TeacherID != teacherID {
		return fmt.Errorf("class %w", ErrNotFound)
	}
	return nil
}

// ListSubmissions returns recordings for review, newest first
func (s *TeacherService) ListSubmissions(ctx context.Context, teacherID int64, status string, classID *int64) ([]models.Recording, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	return s.recordings.ListRecordings(ctx, repository.RecordingFilter{ClassID: classID, Status: st})
}

// FeedbackRequest is a teacher's review of one recording
type FeedbackRequest struct {
	RecordingID       int64  `json:"recording_id"`
	FeedbackText      string `json:"feedback_text"`
	Grade             string `json:"grade"`
	FlagForPractice   bool   `json:"flag_for_practice"`
	AppendToAutomated bool   `json:"append_to_automated"`
}

// FeedbackResult reports the stored review
type FeedbackResult struct {
	Recording                    *models.Recording `json:"recording"`
	PreviousFeedbackWasAutomated bool              `json:"previous_feedback_was_automated"`
	EmailSent                    bool              `json:"email_sent"`
}

// SubmitFeedback overrides or extends the feedback on a recording. Empty
// text or grade keep the stored values. With AppendToAutomated the notes are
// added to automated feedback instead of replacing it.
func (s *TeacherService) SubmitFeedback(ctx context.Context, teacherID int64, req FeedbackRequest) (*FeedbackResult, error) {
	grade := strings.TrimSpace(req.Grade)
	if grade != "" && !feedback.Grade(grade).Valid() {
		return nil, validation.ValidationError{Field: "grade", Message: "unknown grade"}
	}

	reviewer, err := s.users.GetUserByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if reviewer == nil || !reviewer.IsTeacher() {
		return nil, ErrForbidden
	}

	rec, err := s.recordings.GetRecordingByID(ctx, req.RecordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("recording %w", ErrNotFound)
	}
	wasAutomated := rec.IsAutomatedFeedback

	text := rec.TeacherFeedback
	// notes are stored as written; only blank notes are ignored
	if strings.TrimSpace(req.FeedbackText) != "" {
		if req.AppendToAutomated && wasAutomated {
			text = feedback.EnhanceFeedback(rec.TeacherFeedback, req.FeedbackText)
		} else {
			text = req.FeedbackText
		}
	}
	if grade == "" {
		grade = rec.TeacherGrade
	}

	now := s.now().UTC()
	review := repository.Review{
		Feedback:        text,
		Grade:           grade,
		ReviewedBy:      teacherID,
		FlagForPractice: req.FlagForPractice,
		ReviewedAt:      now,
	}
	if err := s.recordings.SaveReview(ctx, rec.ID, review); err != nil {
		return nil, err
	}

	rec.TeacherFeedback = text
	rec.TeacherGrade = grade
	rec.ReviewedBy = &teacherID
	rec.Status = models.StatusReviewed
	rec.FlagForPractice = req.FlagForPractice
	rec.IsAutomatedFeedback = false
	rec.ReviewedAt = &now

	if req.Grade != "" {
		s.metrics.RecordGrade(ctx, grade, "teacher")
	}

	result := &FeedbackResult{Recording: rec, PreviousFeedbackWasAutomated: wasAutomated}
	result.EmailSent = s.notifyStudent(ctx, rec)
	return result, nil
}

// notifyStudent emails the student about new feedback. Failures are logged
// and never fail the review.
func (s *TeacherService) notifyStudent(ctx context.Context, rec *models.Recording) bool {
	if s.email == nil || !s.email.IsEnabled() {
		return false
	}
	student, err := s.users.GetUserByID(ctx, rec.StudentID)
	if err != nil || student == nil || student.Email == "" {
		slog.Warn("could not load student for feedback email", "student_id", rec.StudentID, "error", err)
		return false
	}
	if err := s.email.SendFeedbackEmail(ctx, student.Email, student.Username, rec); err != nil {
		slog.Error("failed to send feedback email", "student_id", rec.StudentID, "error", err)
		return false
	}
	return true
}

// Students lists students with their recording totals
func (s *TeacherService) Students(ctx context.Context, teacherID int64, classID *int64) ([]models.StudentStats, error) {
	if err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	stats, err := s.recordings.StudentStats(ctx, classID)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].AverageScore = progress.Round(stats[i].AverageScore, 2)
	}
	return stats, nil
}

// Analytics is an overview of recordings for the teacher's dashboard
type Analytics struct {
	TotalRecordings    int               `json:"total_recordings"`
	PendingReviews     int               `json:"pending_reviews"`
	AverageScore       float64           `json:"average_score"`
	MostPracticedWords []models.WordStat `json:"most_practiced_words"`
	ChallengingWords   []models.WordStat `json:"challenging_words"`
}

// Analytics computes totals and word rankings. The class filter applies to
// every figure.
func (s *TeacherService) Analytics(ctx context.Context, teacherID int64, classID *int64) (*Analytics, error) {
	if err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	total, pending, avg, err := s.recordings.Totals(ctx, classID)
	if err != nil {
		return nil, err
	}
	popular, err := s.recordings.MostPracticedWords(ctx, classID, analyticsWordLimit)
	if err != nil {
		return nil, err
	}
	challenging, err := s.recordings.ChallengingWords(ctx, classID, analyticsWordLimit)
	if err != nil {
		return nil, err
	}
	for i := range popular {
		popular[i].AverageScore = progress.Round(popular[i].AverageScore, 2)
	}
	for i := range challenging {
		challenging[i].AverageScore = progress.Round(challenging[i].AverageScore, 2)
	}

	return &Analytics{
		TotalRecordings:    total,
		PendingReviews:     pending,
		AverageScore:       progress.Round(avg, 2),
		MostPracticedWords: nonNil(popular),
		ChallengingWords:   nonNil(challenging),
	}, nil
}

// CreateClass creates a class owned by the teacher
func (s *TeacherService) CreateClass(ctx context.Context, teacherID int64, name, description string) (*models.Class, error) {
	if err := validation.ValidateName("class_name", name); err != nil {
		return nil, err
	}
	return s.classes.CreateClass(ctx, teacherID, strings.TrimSpace(name), strings.TrimSpace(description))
}

// ListClasses returns the teacher's classes with student counts
func (s *TeacherService) ListClasses(ctx context.Context, teacherID int64) ([]models.Class, error) {
	return s.classes.ListClasses(ctx, teacherID)
}

// EnrollStudents adds students to one of the teacher's classes. Enrolling a
// student twice is a no-op.
func (s *TeacherService) EnrollStudents(ctx context.Context, teacherID, classID int64, studentIDs []int64) (*models.Class, error) {
	if err := s.ownedClass(ctx, teacherID, &classID); err != nil {
		return nil, err
	}
	if len(studentIDs) == 0 {
		return nil, validation.ValidationError{Field: "student_ids", Message: "At least one student is required"}
	}
	for _, id := range studentIDs {
		user, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil || !user.IsStudent() {
			return nil, validation.ValidationError{Field: "student_ids", Message: fmt.Sprintf("user %d is not a student", id)}
		}
		if err := s.classes.EnrollStudent(ctx, classID, id); err != nil {
			return nil, err
		}
	}
	return s.classes.GetClassByID(ctx, classID)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
