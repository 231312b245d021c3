package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const siteBase = "https://polymarket.com"

// Scraper extracts market data from the Polymarket website when the public
// APIs fail. It reads the Next.js data blob embedded in the event page, so
// it is brittle on purpose and sits last in the gateway cascade.
type Scraper struct {
	http *resty.Client
}

// NewScraper creates a website scraper.
func NewScraper() *Scraper {
	return &Scraper{
		http: resty.New().
			SetBaseURL(siteBase).
			SetTimeout(requestTimeout).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; fusecast/1.0)"),
	}
}

// nextData mirrors the slice of __NEXT_DATA__ the scraper cares about.
type nextData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries []struct {
					State struct {
						Data json.RawMessage `json:"data"`
					} `json:"state"`
				} `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ScrapeEvent fetches an event page and recovers the embedded event payload.
func (s *Scraper) ScrapeEvent(ctx context.Context, slug string) (*Event, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		Get("/event/" + slug)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch event page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("event page returned %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse event page: %w", err)
	}

	blob := doc.Find("script#__NEXT_DATA__").First().Text()
	if blob == "" {
		return nil, fmt.Errorf("no data blob on event page for %q", slug)
	}

	event, err := parseEventBlob(blob, slug)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("slug", slug).
		Int("markets", len(event.Markets)).
		Msg("Scraped event from website")

	return event, nil
}

// parseEventBlob walks the dehydrated query cache for an object that looks
// like the event with the wanted slug.
func parseEventBlob(blob, slug string) (*Event, error) {
	var nd nextData
	if err := json.Unmarshal([]byte(blob), &nd); err != nil {
		return nil, fmt.Errorf("failed to parse data blob: %w", err)
	}

	for _, q := range nd.Props.PageProps.DehydratedState.Queries {
		if len(q.State.Data) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(q.State.Data, &ev); err != nil {
			continue
		}
		if ev.Slug == slug && len(ev.Markets) > 0 {
			return &ev, nil
		}
	}
	return nil, fmt.Errorf("event %q not found in page data", slug)
}

// ScrapeTitle is a cheaper fallback: it only recovers the page title, for
// building a question when the full payload cannot be parsed.
func (s *Scraper) ScrapeTitle(ctx context.Context, slug string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := s.http.R().
		SetContext(ctx).
		Get("/event/" + slug)

	if err != nil {
		return "", fmt.Errorf("failed to fetch event page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("event page returned %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("failed to parse event page: %w", err)
	}

	title, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
		title = strings.TrimSuffix(title, " | Polymarket")
	}
	if title == "" {
		return "", fmt.Errorf("no title on event page for %q", slug)
	}
	return title, nil
}
