package assessment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"speakwell/internal/feedback"
)

// MockProvider returns random but realistic scores. It is used in
// development when no speech service is configured.
type MockProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockProvider creates a MockProvider seeded from the clock.
func NewMockProvider() *MockProvider {
	seed := uint64(time.Now().UnixNano())
	return NewSeededMockProvider(seed, seed>>1)
}

// NewSeededMockProvider creates a deterministic MockProvider.
func NewSeededMockProvider(seed1, seed2 uint64) *MockProvider {
	return &MockProvider{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// between returns an integer score in [lo, hi].
func (p *MockProvider) between(lo, hi int) *float64 {
	return feedback.Score(float64(lo + p.rng.IntN(hi-lo+1)))
}

// Assess implements Provider. The audio file is not read.
func (p *MockProvider) Assess(ctx context.Context, _ string, referenceText string) (*feedback.ScoreReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	report := &feedback.ScoreReport{
		RecognizedText:     referenceText,
		PronunciationScore: p.between(65, 95),
		AccuracyScore:      p.between(60, 95),
		FluencyScore:       p.between(70, 95),
		CompletenessScore:  p.between(80, 100),
		Mock:               true,
	}

	for _, word := range strings.Fields(referenceText) {
		n := utf8.RuneCountInString(word)/2 + 1
		phonemes := make([]feedback.PhonemeScore, 0, n)
		for i := 0; i < n; i++ {
			phonemes = append(phonemes, feedback.PhonemeScore{
				Phoneme:       fmt.Sprintf("ph%d", i),
				AccuracyScore: p.between(60, 100),
			})
		}
		report.Words = append(report.Words, feedback.WordScore{
			Word:          word,
			AccuracyScore: *p.between(60, 95),
			Phonemes:      phonemes,
		})
	}
	return report, nil
}
