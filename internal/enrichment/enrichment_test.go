package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeaandrob/fusecast/internal/models"
)

func TestFileCache(t *testing.T) {
	dir := t.TempDir()

	c := newFileCache(dir, time.Hour)
	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("key", "value")
	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	// Expired entries behave like misses.
	expired := newFileCache(dir, -time.Second)
	expired.Put("old", "stale")
	_, ok = expired.Get("old")
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	r := newRateLimiter(time.Hour)
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	fast := newRateLimiter(time.Millisecond)
	assert.True(t, fast.Allow())
	time.Sleep(5 * time.Millisecond)
	assert.True(t, fast.Allow())
}

type fakeSearcher struct {
	resp  *TavilySearchResponse
	err   error
	calls int
}

func (f *fakeSearcher) SearchNews(ctx context.Context, query string, maxResults int) (*TavilySearchResponse, error) {
	f.calls++
	return f.resp, f.err
}

func newsEnricherForTest(t *testing.T, search newsSearcher) *NewsEnricher {
	t.Helper()
	return &NewsEnricher{
		search:  search,
		cache:   newFileCache(t.TempDir(), newsCacheTTL),
		limiter: newRateLimiter(0),
	}
}

func TestNewsEnricherUsesAnswer(t *testing.T) {
	search := &fakeSearcher{resp: &TavilySearchResponse{Answer: "Talks resumed this week."}}
	e := newsEnricherForTest(t, search)

	ev := &models.Event{Question: "Will a ceasefire be signed?"}
	e.Enrich(context.Background(), ev)

	require.NotNil(t, ev.Enrichment)
	assert.Equal(t, "Talks resumed this week.", ev.Enrichment.NewsSummary)

	// Second event with the same question hits the cache.
	ev2 := &models.Event{Question: "Will a ceasefire be signed?"}
	e.Enrich(context.Background(), ev2)
	assert.Equal(t, 1, search.calls)
	require.NotNil(t, ev2.Enrichment)
	assert.Equal(t, "Talks resumed this week.", ev2.Enrichment.NewsSummary)
}

func TestNewsEnricherFallsBackToHeadlines(t *testing.T) {
	search := &fakeSearcher{resp: &TavilySearchResponse{Results: []TavilyResult{
		{Title: "Headline one", Content: "Detail one."},
		{Title: "Headline two", Content: "Detail two."},
	}}}
	e := newsEnricherForTest(t, search)

	ev := &models.Event{Question: "Will it happen?"}
	e.Enrich(context.Background(), ev)

	require.NotNil(t, ev.Enrichment)
	assert.Contains(t, ev.Enrichment.NewsSummary, "Headline one")
	assert.Contains(t, ev.Enrichment.NewsSummary, "Detail two.")
}

func TestNewsEnricherFailureLeavesEventUntouched(t *testing.T) {
	e := newsEnricherForTest(t, &fakeSearcher{err: errors.New("api down")})

	ev := &models.Event{Question: "Will it happen?"}
	e.Enrich(context.Background(), ev)
	assert.Nil(t, ev.Enrichment)
}

func TestWorldSentimentSkipsUnrelatedCategories(t *testing.T) {
	e := NewWorldSentimentEnricher(t.TempDir())

	ev := &models.Event{Question: "Will the Lakers win the NBA finals?"}
	e.Enrich(context.Background(), ev)
	assert.Nil(t, ev.Enrichment)
}

func TestWorldSentimentUsesCache(t *testing.T) {
	e := NewWorldSentimentEnricher(t.TempDir())
	e.cache.Put(sentimentCacheKey, "62.5")

	ev := &models.Event{Question: "Will Russia and Ukraine reach a ceasefire?"}
	e.Enrich(context.Background(), ev)

	require.NotNil(t, ev.Enrichment)
	require.NotNil(t, ev.Enrichment.WorldTemperature)
	assert.InDelta(t, 62.5, *ev.Enrichment.WorldTemperature, 1e-9)
}
