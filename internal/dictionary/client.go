// Package dictionary looks up phonetics and definitions of English words from
// the Free Dictionary API.
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when the dictionary has no entry for a word.
var ErrNotFound = errors.New("word not found in dictionary")

const (
	maxDefinitionsPerMeaning = 3
	maxSynonyms              = 5
	lookupConcurrency        = 8
	sourceName               = "Free Dictionary API"
)

// Entry is the parsed dictionary data for one word.
type Entry struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic"`
	AudioURL string    `json:"audio_url,omitempty"`
	Meanings []Meaning `json:"meanings"`
	Source   string    `json:"source"`
}

// Meaning is one definition with its part of speech.
type Meaning struct {
	PartOfSpeech string   `json:"partOfSpeech"`
	Definition   string   `json:"definition"`
	Example      string   `json:"example"`
	Synonyms     []string `json:"synonyms"`
}

// Client fetches entries, consulting the cache first. Concurrent lookups of
// the same word share a single upstream request.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	group   singleflight.Group
}

// NewClient creates a Client. A nil cache disables caching.
func NewClient(baseURL string, cache Cache) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

// Normalize lowercases and trims a word the way it is cached and stored.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Lookup returns the entry for word, or ErrNotFound.
func (c *Client) Lookup(ctx context.Context, word string) (*Entry, error) {
	word = Normalize(word)
	if word == "" {
		return nil, ErrNotFound
	}

	if c.cache != nil {
		entry, ok, err := c.cache.Get(ctx, word)
		if err != nil {
			slog.Warn("dictionary cache read failed", "word", word, "error", err)
		} else if ok {
			return entry, nil
		}
	}

	v, err, _ := c.group.Do(word, func() (any, error) {
		entry, err := c.fetch(ctx, word)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Set(ctx, word, entry); err != nil {
				slog.Warn("dictionary cache write failed", "word", word, "error", err)
			}
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// LookupMany fetches words concurrently. Words that are missing or fail to
// load map to nil; only context cancellation is returned as an error.
func (c *Client) LookupMany(ctx context.Context, words []string) (map[string]*Entry, error) {
	results := make([]*Entry, len(words))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, word := range words {
		g.Go(func() error {
			entry, err := c.Lookup(gctx, word)
			switch {
			case err == nil:
				results[i] = entry
			case errors.Is(err, ErrNotFound):
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				slog.Warn("dictionary lookup failed", "word", word, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Entry, len(words))
	for i, word := range words {
		out[word] = results[i]
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, word string) (*Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dictionary request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("dictionary API returned status %d", resp.StatusCode)
	}

	var raw []apiEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dictionary response: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	return raw[0].entry(), nil
}

type apiEntry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text  string `json:"text"`
		Audio string `json:"audio"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string   `json:"definition"`
			Example    string   `json:"example"`
			Synonyms   []string `json:"synonyms"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// entry picks the first phonetic with audio, falling back to the first one
// with text, and caps definitions and synonyms.
func (a apiEntry) entry() *Entry {
	e := &Entry{Word: a.Word, Phonetic: a.Phonetic, Source: sourceName, Meanings: []Meaning{}}

	for _, ph := range a.Phonetics {
		if ph.Audio != "" {
			e.AudioURL = ph.Audio
			if e.Phonetic == "" {
				e.Phonetic = ph.Text
			}
			break
		}
		if e.Phonetic == "" {
			e.Phonetic = ph.Text
		}
	}

	for _, m := range a.Meanings {
		defs := m.Definitions
		if len(defs) > maxDefinitionsPerMeaning {
			defs = defs[:maxDefinitionsPerMeaning]
		}
		for _, d := range defs {
			synonyms := d.Synonyms
			if len(synonyms) > maxSynonyms {
				synonyms = synonyms[:maxSynonyms]
			}
			if synonyms == nil {
				synonyms = []string{}
			}
			e.Meanings = append(e.Meanings, Meaning{
				PartOfSpeech: m.PartOfSpeech,
				Definition:   d.Definition,
				Example:      d.Example,
				Synonyms:     synonyms,
			})
		}
	}
	return e
}
