package feedback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phoneme(symbol string, score float64) PhonemeScore {
	return PhonemeScore{Phoneme: symbol, AccuracyScore: Score(score)}
}

func TestAnalyzePhonemesThresholdIsExclusive(t *testing.T) {
	report := &ScoreReport{Words: []WordScore{{
		Word:     "test",
		Phonemes: []PhonemeScore{phoneme("t", 60), phoneme("ɛ", 59)},
	}}}

	got, ok := AnalyzePhonemes(report)
	require.True(t, ok)
	assert.Equal(t, "Pay special attention to these sounds: /ɛ/.", got)
	assert.NotContains(t, got, "/t/")
}

func TestAnalyzePhonemes(t *testing.T) {
	tests := []struct {
		name   string
		report *ScoreReport
		want   string
		wantOK bool
	}{
		{
			name:   "nil report",
			report: nil,
		},
		{
			name:   "no words",
			report: &ScoreReport{PronunciationScore: Score(50)},
		},
		{
			name:   "words without phonemes",
			report: &ScoreReport{Words: []WordScore{{Word: "cat"}}},
		},
		{
			name: "missing accuracy counts as perfect",
			report: &ScoreReport{Words: []WordScore{{
				Word:     "cat",
				Phonemes: []PhonemeScore{{Phoneme: "k"}, {Phoneme: "æ"}},
			}}},
		},
		{
			name: "caps at three in encounter order",
			report: &ScoreReport{Words: []WordScore{
				{Word: "one", Phonemes: []PhonemeScore{phoneme("a", 10), phoneme("b", 20)}},
				{Word: "two", Phonemes: []PhonemeScore{phoneme("c", 30), phoneme("d", 40), phoneme("e", 50)}},
			}},
			want:   "Pay special attention to these sounds: /a/, /b/, /c/.",
			wantOK: true,
		},
		{
			name: "duplicates keep first occurrence",
			report: &ScoreReport{Words: []WordScore{{
				Word:     "banana",
				Phonemes: []PhonemeScore{phoneme("b", 10), phoneme("ə", 20), phoneme("b", 5), phoneme("n", 30)},
			}}},
			want:   "Pay special attention to these sounds: /b/, /ə/, /n/.",
			wantOK: true,
		},
		{
			name: "empty symbols are skipped",
			report: &ScoreReport{Words: []WordScore{{
				Word:     "hi",
				Phonemes: []PhonemeScore{phoneme("", 10), phoneme("  ", 10), phoneme("h", 10)},
			}}},
			want:   "Pay special attention to these sounds: /h/.",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AnalyzePhonemes(tt.report)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzePhonemesCapListsEachOnce(t *testing.T) {
	report := &ScoreReport{Words: []WordScore{{
		Word:     "strengths",
		Phonemes: []PhonemeScore{phoneme("s", 1), phoneme("t", 2), phoneme("r", 3), phoneme("ɛ", 4), phoneme("ŋ", 5)},
	}}}

	got, ok := AnalyzePhonemes(report)
	require.True(t, ok)
	for _, sym := range []string{"/s/", "/t/", "/r/"} {
		assert.Equal(t, 1, strings.Count(got, sym), sym)
	}
	assert.NotContains(t, got, "/ɛ/")
	assert.NotContains(t, got, "/ŋ/")
}

func TestGenerateFeedbackUnableToAssess(t *testing.T) {
	for name, report := range map[string]*ScoreReport{
		"nil":          nil,
		"empty":        {},
		"error only":   {Error: "No speech could be recognized"},
		"words only":   {Words: []WordScore{{Word: "cat"}}},
		"components":   {AccuracyScore: Score(90), FluencyScore: Score(90)},
	} {
		t.Run(name, func(t *testing.T) {
			got := GenerateFeedback(report, "anything")
			assert.Equal(t, GradeNotAvailable, got.Grade)
			assert.True(t, got.IsAutomated)
			assert.Contains(t, got.Text, "Unable to assess")
		})
	}
}

func TestGenerateFeedbackComposition(t *testing.T) {
	tests := []struct {
		name      string
		report    *ScoreReport
		word      string
		wantText  string
		wantGrade Grade
	}{
		{
			name: "excellent with every strength",
			report: &ScoreReport{
				PronunciationScore: Score(92),
				AccuracyScore:      Score(90),
				FluencyScore:       Score(88),
				CompletenessScore:  Score(95),
			},
			word:      "hello",
			wantText:  "Excellent pronunciation of 'hello'! 🌟 Strengths: accurate pronunciation, smooth fluency, clear articulation. Keep up the excellent work!",
			wantGrade: GradeA,
		},
		{
			name:      "missing components are weaknesses",
			report:    &ScoreReport{PronunciationScore: Score(65)},
			word:      "cat",
			wantText:  "Nice try with 'cat'. Keep practicing! Focus on: pronunciation accuracy, fluency and rhythm, completing the full word clearly. 💡 Tip: Listen to the model pronunciation and try to match the sounds carefully.",
			wantGrade: GradeCPlus,
		},
		{
			name: "middle band with one weakness",
			report: &ScoreReport{
				PronunciationScore: Score(75),
				AccuracyScore:      Score(75),
				FluencyScore:       Score(60),
				CompletenessScore:  Score(85),
			},
			word:      "river",
			wantText:  "Good effort on 'river'. You're making progress! Focus on: fluency and rhythm. 💡 Tip: You're close! Pay attention to the stress and rhythm of the word.",
			wantGrade: GradeB,
		},
		{
			name: "strengths and weaknesses with phonemes",
			report: &ScoreReport{
				PronunciationScore: Score(82),
				AccuracyScore:      Score(86),
				FluencyScore:       Score(50),
				CompletenessScore:  Score(100),
				Words: []WordScore{{
					Word:     "three",
					Phonemes: []PhonemeScore{phoneme("θ", 40), phoneme("r", 90), phoneme("i", 70)},
				}},
			},
			word:      "three",
			wantText:  "Great job on 'three'! You're doing very well. Strengths: accurate pronunciation, clear articulation. Focus on: fluency and rhythm. Pay special attention to these sounds: /θ/. 💡 Tip: You're close! Pay attention to the stress and rhythm of the word.",
			wantGrade: GradeBPlus,
		},
		{
			name: "low score",
			report: &ScoreReport{
				PronunciationScore: Score(30),
				AccuracyScore:      Score(70),
				FluencyScore:       Score(70),
				CompletenessScore:  Score(80),
			},
			word:      "squirrel",
			wantText:  "Keep working on 'squirrel'. Practice makes perfect! 💡 Tip: Listen to the model pronunciation and try to match the sounds carefully.",
			wantGrade: GradeF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateFeedback(tt.report, tt.word)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantGrade, got.Grade)
			assert.True(t, got.IsAutomated)
		})
	}
}

func TestGenerateFeedbackMentionsWord(t *testing.T) {
	words := []string{"a", "pneumonia", "Mississippi", "naïve", "it's"}
	for _, word := range words {
		for score := 0.0; score <= 100; score += 2.5 {
			got := GenerateFeedback(&ScoreReport{PronunciationScore: Score(score)}, word)
			if !strings.Contains(got.Text, word) {
				t.Fatalf("feedback for %q at %v does not mention the word: %q", word, score, got.Text)
			}
		}
	}
}

func TestGenerateFeedbackClampsOutOfRange(t *testing.T) {
	high := GenerateFeedback(&ScoreReport{PronunciationScore: Score(140)}, "loud")
	assert.Equal(t, GradeAPlus, high.Grade)

	low := GenerateFeedback(&ScoreReport{PronunciationScore: Score(-20)}, "quiet")
	assert.Equal(t, GradeF, low.Grade)
	assert.Contains(t, low.Text, "Keep working on 'quiet'")
}

func TestEnhanceFeedback(t *testing.T) {
	inputs := []string{"", "Great job!", "line one\nline two"}
	for _, x := range inputs {
		assert.Equal(t, x, EnhanceFeedback(x, ""))
		assert.Equal(t, x, EnhanceFeedback(x, "   "))
		assert.Equal(t, x, EnhanceFeedback(x, "\t\n"))
	}

	got := EnhanceFeedback("Great job!", "note")
	assert.Equal(t, "Great job!\n\n👨‍🏫 Teacher's Note: note", got)
	assert.Contains(t, got, "Teacher's Note")

	padded := EnhanceFeedback("x", "  keep the spaces  ")
	assert.True(t, strings.HasSuffix(padded, "  keep the spaces  "))
}
