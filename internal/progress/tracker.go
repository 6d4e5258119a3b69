package progress

import (
	"context"
	"fmt"
	"time"
)

// Store reads and writes day records. Implementations may be bound to a
// database transaction so that a progress update commits together with the
// recording it belongs to.
type Store interface {
	GetDay(ctx context.Context, studentID int64, day time.Time) (*Record, error)
	SaveDay(ctx context.Context, rec Record, isNew bool) error
}

// History is the read side used for streaks and summaries.
type History interface {
	HasPracticed(ctx context.Context, studentID int64, day time.Time) (bool, error)
	ListDays(ctx context.Context, studentID int64, since *time.Time) ([]Record, error)
}

// Tracker applies new scores to day records under a per-(student, day) lock.
type Tracker struct {
	locks *KeyedMutex
	now   func() time.Time
}

// NewTracker creates a Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{locks: NewKeyedMutex(), now: time.Now}
}

// Today returns the tracker's current calendar day.
func (t *Tracker) Today() time.Time {
	return Day(t.now())
}

// Lock holds the (student, day) key until the returned function is called.
// Callers that wrap the update in a transaction must keep the lock until the
// transaction has committed or rolled back.
func (t *Tracker) Lock(studentID int64, day time.Time) func() {
	return t.locks.Lock(DayKey(studentID, day))
}

// RecordScore reads, updates and saves the day's record. The caller must hold
// the lock for (studentID, day).
func (t *Tracker) RecordScore(ctx context.Context, store Store, studentID int64, day time.Time, score float64) (Record, error) {
	day = Day(day)
	existing, err := store.GetDay(ctx, studentID, day)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load progress: %w", err)
	}

	rec := Apply(existing, studentID, day, score)
	if err := store.SaveDay(ctx, rec, existing == nil); err != nil {
		return Record{}, fmt.Errorf("failed to save progress: %w", err)
	}
	return rec, nil
}

// Overview is a student's progress for a period plus the current streak.
type Overview struct {
	Summary
	Streak int `json:"streak_count"`
}

// Overview summarizes the period ending today and computes the streak.
func (t *Tracker) Overview(ctx context.Context, history History, studentID int64, period Period) (Overview, error) {
	today := t.Today()

	var since *time.Time
	if start, ok := period.Since(today); ok {
		since = &start
	}
	records, err := history.ListDays(ctx, studentID, since)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to list progress: %w", err)
	}

	streak, err := Streak(today, func(day time.Time) (bool, error) {
		return history.HasPracticed(ctx, studentID, day)
	})
	if err != nil {
		return Overview{}, fmt.Errorf("failed to compute streak: %w", err)
	}

	return Overview{Summary: Summarize(records), Streak: streak}, nil
}
