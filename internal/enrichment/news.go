package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/models"
	"github.com/leeaandrob/fusecast/internal/orchestrator"
)

const (
	newsCacheTTL     = 6 * time.Hour
	newsMinInterval  = 2 * time.Second
	newsMaxResults   = 5
	newsSummaryLimit = 800
)

// newsSearcher abstracts the Tavily client for tests.
type newsSearcher interface {
	SearchNews(ctx context.Context, query string, maxResults int) (*TavilySearchResponse, error)
}

// summarizer condenses raw headlines; the assistant chain implements it.
type summarizer interface {
	Ask(ctx context.Context, prompt string) orchestrator.AssistantResult
}

// NewsEnricher attaches a recent-news summary to events. Failures leave
// the event untouched; the forecast proceeds without news context.
type NewsEnricher struct {
	search  newsSearcher
	assist  summarizer
	cache   *fileCache
	limiter *rateLimiter
}

// NewNewsEnricher wires the Tavily search and the optional assistant
// summarizer (nil to use Tavily's own answer only).
func NewNewsEnricher(search *TavilyClient, assist *orchestrator.AssistantChain, cacheDir string) *NewsEnricher {
	e := &NewsEnricher{
		search:  search,
		cache:   newFileCache(cacheDir, newsCacheTTL),
		limiter: newRateLimiter(newsMinInterval),
	}
	if assist != nil {
		e.assist = assist
	}
	return e
}

// Enrich fills Event.Enrichment.NewsSummary.
func (e *NewsEnricher) Enrich(ctx context.Context, ev *models.Event) {
	if ev == nil || ev.Question == "" {
		return
	}

	if cached, ok := e.cache.Get("news:" + ev.Question); ok {
		setNews(ev, cached)
		return
	}
	if !e.limiter.Allow() {
		log.Debug().Msg("News enricher rate-limited, skipping")
		return
	}

	resp, err := e.search.SearchNews(ctx, ev.Question, newsMaxResults)
	if err != nil {
		log.Warn().Err(err).Msg("News search failed")
		return
	}

	summary := e.summarize(ctx, ev.Question, resp)
	if summary == "" {
		return
	}
	if len(summary) > newsSummaryLimit {
		summary = summary[:newsSummaryLimit]
	}

	e.cache.Put("news:"+ev.Question, summary)
	setNews(ev, summary)
}

// summarize prefers Tavily's synthesized answer, falls back to the
// assistant chain over raw headlines, then to the headlines themselves.
func (e *NewsEnricher) summarize(ctx context.Context, question string, resp *TavilySearchResponse) string {
	if resp.Answer != "" {
		return resp.Answer
	}
	if len(resp.Results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, r := range resp.Results {
		if i >= newsMaxResults {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Content)
	}
	headlines := b.String()

	if e.assist != nil {
		prompt := fmt.Sprintf(
			"Summarize the following news items in 2-3 sentences as context for the forecasting question %q. Facts only, no speculation.\n\n%s",
			question, headlines)
		result := e.assist.Ask(ctx, prompt)
		if result.Source != orchestrator.FallbackDefaultSource {
			return result.Text
		}
	}
	return headlines
}

func setNews(ev *models.Event, summary string) {
	if ev.Enrichment == nil {
		ev.Enrichment = &models.EnrichmentContext{}
	}
	ev.Enrichment.NewsSummary = summary
}
