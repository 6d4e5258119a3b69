// Package feedback turns pronunciation assessment scores into a letter grade
// and a readable feedback message for the student.
//
// Every function in this package is pure and safe for concurrent use.
package feedback

import "strings"

// ScoreReport is the result of one pronunciation assessment of a single
// utterance against a reference word, as produced by the assessment provider.
// Optional values are pointers; a nil PronunciationScore means the
// assessment failed.
type ScoreReport struct {
	RecognizedText     string      `json:"recognized_text,omitempty"`
	PronunciationScore *float64    `json:"pronunciation_score,omitempty"`
	AccuracyScore      *float64    `json:"accuracy_score,omitempty"`
	FluencyScore       *float64    `json:"fluency_score,omitempty"`
	CompletenessScore  *float64    `json:"completeness_score,omitempty"`
	Words              []WordScore `json:"words,omitempty"`
	Error              string      `json:"error,omitempty"`
	Mock               bool        `json:"_mock,omitempty"`
}

// WordScore holds the provider's per-word result.
type WordScore struct {
	Word          string         `json:"word"`
	AccuracyScore float64        `json:"accuracy_score"`
	ErrorType     string         `json:"error_type,omitempty"`
	Phonemes      []PhonemeScore `json:"phonemes,omitempty"`
}

// PhonemeScore holds the provider's result for one phoneme.
type PhonemeScore struct {
	Phoneme       string   `json:"phoneme"`
	AccuracyScore *float64 `json:"accuracy_score,omitempty"`
}

// Score returns a pointer to v, for building reports in code.
func Score(v float64) *float64 {
	return &v
}

// Assessed reports whether the report carries an overall pronunciation score.
func (r *ScoreReport) Assessed() bool {
	return r != nil && r.PronunciationScore != nil
}

// PronunciationOrZero returns the clamped pronunciation score, or 0 when the
// assessment failed.
func (r *ScoreReport) PronunciationOrZero() float64 {
	if !r.Assessed() {
		return 0
	}
	return Clamp(*r.PronunciationScore)
}

// Normalized is a ScoreReport with every default already applied. Component
// scores default to 0, phoneme accuracy defaults to 100 and all scores are
// clamped into [0, 100].
type Normalized struct {
	Pronunciation float64
	Accuracy      float64
	Fluency       float64
	Completeness  float64
	Phonemes      []NormalizedPhoneme
}

// NormalizedPhoneme is a phoneme symbol with its defaulted accuracy, in the
// order the provider reported them.
type NormalizedPhoneme struct {
	Symbol   string
	Accuracy float64
}

// Normalize applies defaults to r in one place so that the composer and the
// phoneme analyzer always agree on missing values. It returns false when the
// report has no pronunciation score.
func Normalize(r *ScoreReport) (Normalized, bool) {
	if !r.Assessed() {
		return Normalized{}, false
	}

	n := Normalized{
		Pronunciation: Clamp(*r.PronunciationScore),
		Accuracy:      orDefault(r.AccuracyScore, 0),
		Fluency:       orDefault(r.FluencyScore, 0),
		Completeness:  orDefault(r.CompletenessScore, 0),
	}
	for _, w := range r.Words {
		for _, p := range w.Phonemes {
			n.Phonemes = append(n.Phonemes, NormalizedPhoneme{
				Symbol:   strings.TrimSpace(p.Phoneme),
				Accuracy: orDefault(p.AccuracyScore, 100),
			})
		}
	}
	return n, true
}

// Clamp limits a score to the [0, 100] range.
func Clamp(score float64) float64 {
	switch {
	case score != score: // NaN
		return 0
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return Clamp(*v)
}
