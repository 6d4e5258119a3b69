package feedback

import (
	"fmt"
	"strings"
)

// UnableToAssessText is shown whenever the assessment produced no score.
const UnableToAssessText = "Unable to assess pronunciation. Please try recording again."

// teacherNoteMarker separates automated feedback from a teacher's note.
const teacherNoteMarker = "\n\n👨‍🏫 Teacher's Note: "

// Result is the feedback stored alongside a recording.
type Result struct {
	Text        string `json:"text"`
	Grade       Grade  `json:"grade"`
	IsAutomated bool   `json:"is_automated"`
}

// componentRule classifies one component score as a strength or a weakness.
type componentRule struct {
	weakBelow   float64
	strongFrom  float64
	weakness    string
	strength    string
	componentOf func(Normalized) float64
}

var componentRules = []componentRule{
	{70, 85, "pronunciation accuracy", "accurate pronunciation", func(n Normalized) float64 { return n.Accuracy }},
	{70, 85, "fluency and rhythm", "smooth fluency", func(n Normalized) float64 { return n.Fluency }},
	{80, 90, "completing the full word clearly", "clear articulation", func(n Normalized) float64 { return n.Completeness }},
}

// GenerateFeedback composes the automated feedback for one recording of word.
// A nil report or one without a pronunciation score yields the fixed
// "Unable to assess" result with grade N/A.
func GenerateFeedback(r *ScoreReport, word string) Result {
	n, ok := Normalize(r)
	if !ok {
		return Result{Text: UnableToAssessText, Grade: GradeNotAvailable, IsAutomated: true}
	}

	parts := []string{openingLine(n.Pronunciation, word)}

	var strengths, weaknesses []string
	for _, rule := range componentRules {
		score := rule.componentOf(n)
		switch {
		case score < rule.weakBelow:
			weaknesses = append(weaknesses, rule.weakness)
		case score >= rule.strongFrom:
			strengths = append(strengths, rule.strength)
		}
	}
	if len(strengths) > 0 {
		parts = append(parts, fmt.Sprintf("Strengths: %s.", strings.Join(strengths, ", ")))
	}
	if len(weaknesses) > 0 {
		parts = append(parts, fmt.Sprintf("Focus on: %s.", strings.Join(weaknesses, ", ")))
	}

	if diag, found := analyzeNormalized(n.Phonemes); found {
		parts = append(parts, diag)
	}

	parts = append(parts, closingTip(n.Pronunciation))

	return Result{
		Text:        strings.Join(parts, " "),
		Grade:       CalculateGrade(n.Pronunciation),
		IsAutomated: true,
	}
}

func openingLine(score float64, word string) string {
	switch {
	case score >= 90:
		return fmt.Sprintf("Excellent pronunciation of '%s'! 🌟", word)
	case score >= 80:
		return fmt.Sprintf("Great job on '%s'! You're doing very well.", word)
	case score >= 70:
		return fmt.Sprintf("Good effort on '%s'. You're making progress!", word)
	case score >= 60:
		return fmt.Sprintf("Nice try with '%s'. Keep practicing!", word)
	default:
		return fmt.Sprintf("Keep working on '%s'. Practice makes perfect!", word)
	}
}

func closingTip(score float64) string {
	switch {
	case score < 70:
		return "💡 Tip: Listen to the model pronunciation and try to match the sounds carefully."
	case score < 85:
		return "💡 Tip: You're close! Pay attention to the stress and rhythm of the word."
	default:
		return "Keep up the excellent work!"
	}
}

// EnhanceFeedback appends a teacher's note to automated feedback. Blank notes
// leave the text untouched; notes are otherwise included verbatim.
func EnhanceFeedback(automated, teacherNotes string) string {
	if strings.TrimSpace(teacherNotes) == "" {
		return automated
	}
	return automated + teacherNoteMarker + teacherNotes
}
