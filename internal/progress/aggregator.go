// Package progress keeps the per-day practice statistics of a student: words
// practiced, attempts, running average score and the daily streak.
package progress

import (
	"math"
	"time"
)

// Record is one student's statistics for one calendar day.
type Record struct {
	StudentID      int64     `json:"student_id"`
	Date           time.Time `json:"date"`
	WordsPracticed int       `json:"words_practiced"`
	TotalAttempts  int       `json:"total_attempts"`
	AverageScore   float64   `json:"average_score"`
}

// Apply folds one new score into the day's record. A nil existing record
// starts a new day. The attempt count is incremented first and the previous
// average is then weighted by attempts-1, so the average is a running mean
// and history is never rescanned.
func Apply(existing *Record, studentID int64, day time.Time, score float64) Record {
	if existing == nil {
		return Record{
			StudentID:      studentID,
			Date:           Day(day),
			WordsPracticed: 1,
			TotalAttempts:  1,
			AverageScore:   score,
		}
	}

	rec := *existing
	rec.WordsPracticed++
	rec.TotalAttempts++
	rec.AverageScore = (rec.AverageScore*float64(rec.TotalAttempts-1) + score) / float64(rec.TotalAttempts)
	return rec
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Streak counts consecutive practice days ending today. practiced reports
// whether a record with at least one word exists for a day; the walk stops at
// the first gap, so a student who has not practiced today has a streak of 0.
func Streak(today time.Time, practiced func(day time.Time) (bool, error)) (int, error) {
	streak := 0
	day := Day(today)
	for {
		ok, err := practiced(day)
		if err != nil {
			return streak, err
		}
		if !ok {
			return streak, nil
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// Period selects the window used for summary statistics.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Since returns the first day included in the period, or false when the
// period has no lower bound. Unknown periods behave like PeriodAll.
func (p Period) Since(today time.Time) (time.Time, bool) {
	switch p {
	case PeriodWeek:
		return Day(today).AddDate(0, 0, -7), true
	case PeriodMonth:
		return Day(today).AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

// Summary aggregates records over a window.
type Summary struct {
	WordsPracticed int     `json:"words_practiced"`
	TotalAttempts  int     `json:"total_attempts"`
	AverageScore   float64 `json:"average_score"`
}

// Summarize sums words and attempts and averages the per-day averages. The
// mean is over days, not attempts, so a busy day counts as much as a quiet one.
func Summarize(records []Record) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}
	var sum float64
	for _, r := range records {
		s.WordsPracticed += r.WordsPracticed
		s.TotalAttempts += r.TotalAttempts
		sum += r.AverageScore
	}
	s.AverageScore = Round(sum/float64(len(records)), 2)
	return s
}

// CompletionPercentage returns completed/total as a percentage rounded to one
// decimal place. An empty assignment is 0% complete.
func CompletionPercentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round(float64(completed)/float64(total)*100, 1)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
