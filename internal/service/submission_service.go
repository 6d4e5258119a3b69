package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"speakwell/internal/assessment"
	"speakwell/internal/database"
	"speakwell/internal/feedback"
	"speakwell/internal/models"
	"speakwell/internal/observe"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/validation"
)

// SubmissionService turns an uploaded recording into a graded, stored attempt
type SubmissionService struct {
	db          *database.DB
	recordings  *repository.RecordingRepository
	words       *repository.WordRepository
	progress    *repository.ProgressRepository
	assignments *repository.AssignmentRepository
	provider    assessment.Provider
	audio       *AudioStore
	tracker     *progress.Tracker
	metrics     *observe.Metrics
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(db *database.DB, provider assessment.Provider, audio *AudioStore, tracker *progress.Tracker, metrics *observe.Metrics) *SubmissionService {
	return &SubmissionService{
		db:          db,
		recordings:  repository.NewRecordingRepository(db),
		words:       repository.NewWordRepository(db),
		progress:    repository.NewProgressRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		provider:    provider,
		audio:       audio,
		tracker:     tracker,
		metrics:     metrics,
	}
}

// SubmitRequest is one uploaded attempt at a word
type SubmitRequest struct {
	StudentID    int64
	Word         string
	Filename     string
	Audio        io.Reader
	AssignmentID *int64
}

// AssignmentProgress is a student's completion of one assignment
type AssignmentProgress struct {
	AssignmentID         int64   `json:"assignment_id"`
	CompletedWords       int     `json:"completed_words"`
	TotalWords           int     `json:"total_words"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// SubmitResult is what the student sees after submitting
type SubmitResult struct {
	Recording  *models.Recording   `json:"recording"`
	Feedback   feedback.Result     `json:"feedback"`
	Progress   progress.Record     `json:"progress"`
	Assignment *AssignmentProgress `json:"assignment,omitempty"`
}

// Submit stores the audio, assesses it, composes feedback and records the
// attempt. The recording, the practiced-word count, the day's progress and
// the optional assignment submission are written in one transaction while
// the student's day is locked. Assessment failures never fail the request:
// the attempt is stored with "Unable to assess" feedback.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validation.ValidateWord(req.Word); err != nil {
		return nil, err
	}
	word := strings.ToLower(strings.TrimSpace(req.Word))

	if req.AssignmentID != nil {
		if err := s.checkAssignmentWord(ctx, *req.AssignmentID, req.StudentID, word); err != nil {
			return nil, err
		}
	}

	path, err := s.audio.Save(req.StudentID, word, req.Filename, req.Audio)
	if err != nil {
		return nil, err
	}

	report := s.assess(ctx, path, word)
	result := feedback.GenerateFeedback(report, word)

	now := time.Now().UTC()
	rec := &models.Recording{
		StudentID:           req.StudentID,
		WordText:            word,
		AudioFilePath:       path,
		AutomatedScores:     report,
		TeacherFeedback:     result.Text,
		TeacherGrade:        string(result.Grade),
		Status:              models.StatusReviewed,
		FlagForPractice:     report.Assessed() && !RecognitionMatches(report.RecognizedText, word),
		IsAutomatedFeedback: true,
		CreatedAt:           now,
		ReviewedAt:          &now,
	}

	day := s.tracker.Today()
	unlock := s.tracker.Lock(req.StudentID, day)
	defer unlock()

	out := &SubmitResult{Recording: rec, Feedback: result}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := s.recordings.WithTx(tx).CreateRecording(ctx, rec); err != nil {
			return err
		}
		if err := s.words.WithTx(tx).BumpPracticed(ctx, word); err != nil {
			return err
		}
		updated, err := s.tracker.RecordScore(ctx, s.progress.WithTx(tx), req.StudentID, day, report.PronunciationOrZero())
		if err != nil {
			return err
		}
		out.Progress = updated

		if req.AssignmentID != nil {
			ap, err := s.linkSubmission(ctx, s.assignments.WithTx(tx), *req.AssignmentID, req.StudentID, word, rec.ID, now)
			if err != nil {
				return err
			}
			out.Assignment = ap
		}
		return nil
	})
	if err != nil {
		if rmErr := s.audio.Remove(path); rmErr != nil {
			slog.Warn("failed to remove audio after rollback", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.metrics.RecordSubmission(ctx, report.Assessed(), string(result.Grade))
	s.metrics.ProgressUpdates.Add(ctx, 1)
	slog.Info("recording submitted",
		"student_id", req.StudentID,
		"word", word,
		"recording_id", rec.ID,
		"grade", result.Grade,
		"flagged", rec.FlagForPractice,
	)
	return out, nil
}

// SubmitAssignmentWord links an existing recording to an assignment word.
// A later recording of the same word replaces the earlier one.
func (s *SubmissionService) SubmitAssignmentWord(ctx context.Context, studentID, assignmentID int64, word string, recordingID int64) (*AssignmentProgress, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if err := s.checkAssignmentWord(ctx, assignmentID, studentID, word); err != nil {
		return nil, err
	}

	rec, err := s.recordings.GetRecordingByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.StudentID != studentID {
		return nil, fmt.Errorf("recording %w", ErrNotFound)
	}

	var out *AssignmentProgress
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		out, err = s.linkSubmission(ctx, s.assignments.WithTx(tx), assignmentID, studentID, word, recordingID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit assignment word: %w", err)
	}
	return out, nil
}

func (s *SubmissionService) checkAssignmentWord(ctx context.Context, assignmentID, studentID int64, word string) error {
	link, err := s.assignments.GetAssignmentStudent(ctx, assignmentID, studentID)
	if err != nil {
		return err
	}
	if link == nil {
		return fmt.Errorf("assignment %w", ErrNotFound)
	}
	ok, err := s.assignments.HasWord(ctx, assignmentID, word)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWordNotInAssignment
	}
	return nil
}

// linkSubmission saves the submission and stamps completion once every word
// has one.
func (s *SubmissionService) linkSubmission(ctx context.Context, repo *repository.AssignmentRepository, assignmentID, studentID int64, word string, recordingID int64, at time.Time) (*AssignmentProgress, error) {
	if err := repo.SaveSubmission(ctx, assignmentID, studentID, word, recordingID, at); err != nil {
		return nil, err
	}
	completed, err := repo.CountSubmissions(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	words, err := repo.ListWords(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if len(words) > 0 && completed >= len(words) {
		if err := repo.MarkCompleted(ctx, assignmentID, studentID, at); err != nil {
			return nil, err
		}
	}
	return &AssignmentProgress{
		AssignmentID:         assignmentID,
		CompletedWords:       completed,
		TotalWords:           len(words),
		CompletionPercentage: progress.CompletionPercentage(completed, len(words)),
	}, nil
}

func (s *SubmissionService) assess(ctx context.Context, path, word string) *feedback.ScoreReport {
	start := time.Now()
	report, err := s.provider.Assess(ctx, path, word)
	s.metrics.RecordAssessment(ctx, providerName(s.provider), time.Since(start).Seconds(), err)
	if err != nil {
		slog.Warn("pronunciation assessment failed", "word", word, "error", err)
		return assessment.Degraded(err)
	}
	if report == nil {
		return assessment.Degraded(nil)
	}
	return report
}

func providerName(p assessment.Provider) string {
	switch p.(type) {
	case *assessment.AzureProvider:
		return "azure"
	case *assessment.MockProvider:
		return "mock"
	default:
		return fmt.Sprintf("%T", p)
	}
}
