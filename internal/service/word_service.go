package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/dictionary"
	"speakwell/internal/observe"
	"speakwell/internal/repository"
	"speakwell/internal/validation"
)

// fallbackChallengeWords are used for the daily challenge before any word
// has been practiced.
var fallbackChallengeWords = []string{
	"beautiful", "wonderful", "important", "different", "possible",
	"comfortable", "interesting", "necessary", "available", "successful",
}

const challengeCandidates = 50

// WordInfo is a dictionary entry with its practice count
type WordInfo struct {
	dictionary.Entry
	TimesPracticed int `json:"times_practiced"`
}

// WordService looks up words in the dictionary
type WordService struct {
	dict    *dictionary.Client
	words   *repository.WordRepository
	metrics *observe.Metrics
	now     func() time.Time
}

// NewWordService creates a new word service
func NewWordService(dict *dictionary.Client, words *repository.WordRepository, metrics *observe.Metrics) *WordService {
	return &WordService{dict: dict, words: words, metrics: metrics, now: time.Now}
}

// Lookup returns the dictionary entry for word
func (s *WordService) Lookup(ctx context.Context, word string) (*WordInfo, error) {
	if err := validation.ValidateWord(word); err != nil {
		return nil, err
	}
	word = dictionary.Normalize(word)

	entry, err := s.dict.Lookup(ctx, word)
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		s.metrics.RecordDictionaryLookup(ctx, "not_found")
		return nil, fmt.Errorf("word %w", ErrNotFound)
	case err != nil:
		s.metrics.RecordDictionaryLookup(ctx, "error")
		return nil, err
	}
	s.metrics.RecordDictionaryLookup(ctx, "found")

	times, err := s.words.TimesPracticed(ctx, word)
	if err != nil {
		return nil, err
	}
	return &WordInfo{Entry: *entry, TimesPracticed: times}, nil
}

// Popular returns the most practiced words with their dictionary entries.
// Words the dictionary does not know are returned without definitions.
func (s *WordService) Popular(ctx context.Context, limit int) ([]WordInfo, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	stats, err := s.words.PopularWords(ctx, limit)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(stats))
	for i, st := range stats {
		texts[i] = st.WordText
	}
	entries, err := s.dict.LookupMany(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([]WordInfo, 0, len(stats))
	for _, st := range stats {
		info := WordInfo{Entry: dictionary.Entry{Word: st.WordText, Meanings: []dictionary.Meaning{}}, TimesPracticed: st.Attempts}
		if e := entries[st.WordText]; e != nil {
			info.Entry = *e
		}
		out = append(out, info)
	}
	return out, nil
}

// DailyChallenge picks the word of the day from the practiced words, or from
// a fixed list when nothing has been practiced yet. The pick is stable for a
// calendar day.
func (s *WordService) DailyChallenge(ctx context.Context) (*WordInfo, error) {
	stats, err := s.words.PopularWords(ctx, challengeCandidates)
	if err != nil {
		return nil, err
	}
	candidates := fallbackChallengeWords
	if len(stats) > 0 {
		candidates = make([]string, len(stats))
		for i, st := range stats {
			candidates[i] = st.WordText
		}
	}

	today := s.now()
	start := (today.Year()*366 + today.YearDay()) % len(candidates)
	for i := range candidates {
		word := candidates[(start+i)%len(candidates)]
		info, err := s.Lookup(ctx, word)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		var verr validation.ValidationError
		if errors.As(err, &verr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return info, nil
	}
	return nil, fmt.Errorf("daily challenge word %w", ErrNotFound)
}
