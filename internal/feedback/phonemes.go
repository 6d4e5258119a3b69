package feedback

import (
	"fmt"
	"strings"
)

const (
	// problemPhonemeThreshold is exclusive: a phoneme scoring exactly this is fine.
	problemPhonemeThreshold = 60
	maxProblemPhonemes      = 3
)

// AnalyzePhonemes names up to three distinct phonemes the student struggled
// with, in the order they were spoken. It returns false when there is nothing
// to report.
func AnalyzePhonemes(r *ScoreReport) (string, bool) {
	if r == nil || len(r.Words) == 0 {
		return "", false
	}
	n, ok := Normalize(r)
	if !ok {
		// Phoneme data is usable without an overall score.
		n, _ = Normalize(&ScoreReport{PronunciationScore: Score(0), Words: r.Words})
	}
	return analyzeNormalized(n.Phonemes)
}

func analyzeNormalized(phonemes []NormalizedPhoneme) (string, bool) {
	problems := ProblemPhonemes(phonemes, maxProblemPhonemes)
	if len(problems) == 0 {
		return "", false
	}

	wrapped := make([]string, len(problems))
	for i, p := range problems {
		wrapped[i] = "/" + p + "/"
	}
	return fmt.Sprintf("Pay special attention to these sounds: %s.", strings.Join(wrapped, ", ")), true
}

// ProblemPhonemes returns the distinct symbols scoring below 60, first
// occurrence first, capped at limit. Empty symbols are skipped. A limit of
// zero or less means no cap.
func ProblemPhonemes(phonemes []NormalizedPhoneme, limit int) []string {
	var problems []string
	seen := make(map[string]bool)
	for _, p := range phonemes {
		if p.Accuracy >= problemPhonemeThreshold || p.Symbol == "" || seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		problems = append(problems, p.Symbol)
		if limit > 0 && len(problems) == limit {
			break
		}
	}
	return problems
}
