package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/models"
)

const (
	gdeltAPIURL          = "https://api.gdeltproject.org/api/v2/doc/doc"
	sentimentCacheTTL    = 6 * time.Hour
	sentimentMinInterval = 5 * time.Second
	sentimentCacheKey    = "world-temperature"
)

// WorldSentimentEnricher derives a coarse global-tension index from GDELT
// news tone and attaches it as the event's world temperature. Only
// geopolitics and politics events get the index; elsewhere it adds noise.
type WorldSentimentEnricher struct {
	http    *resty.Client
	cache   *fileCache
	limiter *rateLimiter
}

// NewWorldSentimentEnricher creates the enricher.
func NewWorldSentimentEnricher(cacheDir string) *WorldSentimentEnricher {
	return &WorldSentimentEnricher{
		http: resty.New().
			SetBaseURL(gdeltAPIURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(1),
		cache:   newFileCache(cacheDir, sentimentCacheTTL),
		limiter: newRateLimiter(sentimentMinInterval),
	}
}

type gdeltTimeline struct {
	Timeline []struct {
		Data []struct {
			Value float64 `json:"value"`
		} `json:"data"`
	} `json:"timeline"`
}

// Enrich sets Event.Enrichment.WorldTemperature for relevant categories.
func (e *WorldSentimentEnricher) Enrich(ctx context.Context, ev *models.Event) {
	if ev == nil {
		return
	}
	if cat := ev.DetectCategory(); cat != models.CategoryGeopolitics && cat != models.CategoryPolitics {
		return
	}

	if cached, ok := e.cache.Get(sentimentCacheKey); ok {
		if temp, err := strconv.ParseFloat(cached, 64); err == nil {
			setTemperature(ev, temp)
			return
		}
	}
	if !e.limiter.Allow() {
		log.Debug().Msg("Sentiment enricher rate-limited, skipping")
		return
	}

	temp, err := e.fetchTemperature(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("World sentiment fetch failed")
		return
	}

	e.cache.Put(sentimentCacheKey, strconv.FormatFloat(temp, 'f', 1, 64))
	setTemperature(ev, temp)
}

// fetchTemperature samples the average tone of recent conflict coverage
// and maps GDELT's roughly [-10,10] tone scale onto 0 (calm) to 100
// (crisis); more negative tone reads hotter.
func (e *WorldSentimentEnricher) fetchTemperature(ctx context.Context) (float64, error) {
	resp, err := e.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":      `(conflict OR war OR crisis) sourcelang:english`,
			"mode":       "timelinetone",
			"timespan":   "24h",
			"format":     "json",
			"maxrecords": "50",
		}).
		Get("")

	if err != nil {
		return 0, fmt.Errorf("gdelt request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("gdelt returned %d", resp.StatusCode())
	}

	var parsed gdeltTimeline
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return 0, fmt.Errorf("invalid gdelt response: %w", err)
	}

	sum, n := 0.0, 0
	for _, tl := range parsed.Timeline {
		for _, point := range tl.Data {
			sum += point.Value
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("no tone datapoints")
	}

	tone := sum / float64(n)
	temp := (10 - tone) * 5
	if temp < 0 {
		temp = 0
	}
	if temp > 100 {
		temp = 100
	}
	return temp, nil
}

func setTemperature(ev *models.Event, temp float64) {
	if ev.Enrichment == nil {
		ev.Enrichment = &models.EnrichmentContext{}
	}
	ev.Enrichment.WorldTemperature = models.Float(temp)
}
