package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloResponse = `[{
  "word": "hello",
  "phonetics": [
    {"text": "/həˈloʊ/"},
    {"text": "/hɛˈləʊ/", "audio": "https://example.test/hello.mp3"}
  ],
  "meanings": [
    {"partOfSpeech": "noun", "definitions": [
      {"definition": "one", "example": "Hello!", "synonyms": ["a","b","c","d","e","f","g"]},
      {"definition": "two"},
      {"definition": "three"},
      {"definition": "four"}
    ]},
    {"partOfSpeech": "verb", "definitions": [{"definition": "to greet"}]}
  ]
}]`

func newTestServer(t *testing.T, hits *atomic.Int32, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(delay)
		switch strings.TrimPrefix(r.URL.Path, "/") {
		case "hello":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(helloResponse))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"title":"No Definitions Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupParsesEntry(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits, 0)
	client := NewClient(srv.URL, nil)

	entry, err := client.Lookup(context.Background(), "  Hello ")
	require.NoError(t, err)

	assert.Equal(t, "hello", entry.Word)
	assert.Equal(t, "/həˈloʊ/", entry.Phonetic, "first phonetic text wins when no top-level phonetic")
	assert.Equal(t, "https://example.test/hello.mp3", entry.AudioURL)
	assert.Equal(t, "Free Dictionary API", entry.Source)

	require.Len(t, entry.Meanings, 4, "three noun definitions plus one verb")
	assert.Equal(t, "noun", entry.Meanings[0].PartOfSpeech)
	assert.Equal(t, "Hello!", entry.Meanings[0].Example)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, entry.Meanings[0].Synonyms)
	assert.Equal(t, []string{}, entry.Meanings[1].Synonyms)
	assert.Equal(t, "verb", entry.Meanings[3].PartOfSpeech)
}

func TestLookupErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits, 0)
	client := NewClient(srv.URL, nil)
	ctx := context.Background()

	_, err := client.Lookup(ctx, "qwxz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Lookup(ctx, "   ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Lookup(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookupUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits, 0)
	cache := NewMemoryCache(time.Hour, 10)
	client := NewClient(srv.URL, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.Lookup(ctx, "hello")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestLookupCoalescesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits, 50*time.Millisecond)
	client := NewClient(srv.URL, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Lookup(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, hits.Load(), int32(10))
}

func TestLookupMany(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits, 0)
	client := NewClient(srv.URL, NewMemoryCache(time.Hour, 0))

	got, err := client.LookupMany(context.Background(), []string{"hello", "qwxz", "broken"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.NotNil(t, got["hello"])
	assert.Nil(t, got["qwxz"])
	assert.Nil(t, got["broken"])
}

func TestMemoryCacheExpiryAndEviction(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Minute, 2)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &Entry{Word: "a"}))
	now = now.Add(time.Second)
	require.NoError(t, cache.Set(ctx, "b", &Entry{Word: "b"}))
	now = now.Add(time.Second)
	require.NoError(t, cache.Set(ctx, "c", &Entry{Word: "c"}))

	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	got, ok, _ := cache.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, "c", got.Word)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(ctx, "c")
	assert.False(t, ok, "entry expired")
}
