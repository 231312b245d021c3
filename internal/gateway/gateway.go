package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/models"
	"github.com/leeaandrob/fusecast/internal/polymarket"
)

// Sentinel errors for the resolution cascade.
var (
	ErrMarketNotFound   = errors.New("market not found")
	ErrAllSourcesFailed = errors.New("all market sources failed")
)

// marketAPI is the slice of the Polymarket client the gateway needs.
type marketAPI interface {
	GetEventBySlug(ctx context.Context, slug string) (*polymarket.Event, error)
	GetMarketBySlug(ctx context.Context, slug string) (*polymarket.Market, error)
	SearchMarkets(ctx context.Context, query string, limit int) ([]polymarket.Market, error)
	GetMidpoint(ctx context.Context, tokenID string) (float64, error)
}

// pageScraper is the last-resort HTML source.
type pageScraper interface {
	ScrapeEvent(ctx context.Context, slug string) (*polymarket.Event, error)
}

// Gateway resolves event references against the source cascade.
type Gateway struct {
	api     marketAPI
	scraper pageScraper

	marketTimeout time.Duration
	lowProbFloor  float64
}

// New creates a gateway over the real Polymarket clients.
func New(marketTimeout time.Duration, lowProbThreshold float64) *Gateway {
	return &Gateway{
		api:           polymarket.NewClient(),
		scraper:       polymarket.NewScraper(),
		marketTimeout: marketTimeout,
		lowProbFloor:  lowProbThreshold,
	}
}

// NewWithSources creates a gateway with injected sources, for tests and
// alternative backends.
func NewWithSources(api marketAPI, scraper pageScraper, marketTimeout time.Duration, lowProbThreshold float64) *Gateway {
	return &Gateway{
		api:           api,
		scraper:       scraper,
		marketTimeout: marketTimeout,
		lowProbFloor:  lowProbThreshold,
	}
}

// Resolve turns a reference into a canonical Event. The whole cascade is
// bounded by the gateway's market timeout; individual sources carry their
// own shorter budgets inside the clients.
func (g *Gateway) Resolve(ctx context.Context, ref models.EventReference) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, g.marketTimeout)
	defer cancel()

	switch ref.Kind {
	case models.RefMarketURL, models.RefSlug:
		return g.resolveSlug(ctx, ref.Value)
	case models.RefFreeText:
		return g.resolveFreeText(ctx, ref.Value)
	default:
		return nil, ErrBadReference
	}
}

// resolveSlug walks the cascade: event group, single market, page scrape.
func (g *Gateway) resolveSlug(ctx context.Context, slug string) (*models.Event, error) {
	var errs []error

	if ev, err := g.api.GetEventBySlug(ctx, slug); err == nil {
		if built, berr := g.buildFromGroup(ev); berr == nil {
			return built, nil
		} else {
			errs = append(errs, berr)
		}
	} else {
		errs = append(errs, fmt.Errorf("event lookup: %w", err))
	}

	if m, err := g.api.GetMarketBySlug(ctx, slug); err == nil {
		if built, berr := g.buildFromMarket(m); berr == nil {
			return built, nil
		} else {
			errs = append(errs, berr)
		}
	} else {
		errs = append(errs, fmt.Errorf("market lookup: %w", err))
	}

	if ev, err := g.scraper.ScrapeEvent(ctx, slug); err == nil {
		if built, berr := g.buildFromGroup(ev); berr == nil {
			log.Warn().Str("slug", slug).Msg("Resolved event via page scrape")
			return built, nil
		} else {
			errs = append(errs, berr)
		}
	} else {
		errs = append(errs, fmt.Errorf("page scrape: %w", err))
	}

	log.Error().
		Str("slug", slug).
		Errs("sources", errs).
		Msg("All market sources failed")
	return nil, fmt.Errorf("%w for %q: %s", ErrAllSourcesFailed, slug, joinErrs(errs))
}

// resolveFreeText tries a slugified direct lookup, then the text search.
func (g *Gateway) resolveFreeText(ctx context.Context, text string) (*models.Event, error) {
	if slug := Slugify(text); slug != "" {
		if ev, err := g.api.GetEventBySlug(ctx, slug); err == nil {
			if built, berr := g.buildFromGroup(ev); berr == nil {
				return built, nil
			}
		}
	}

	markets, err := g.api.SearchMarkets(ctx, text, 5)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %s", ErrAllSourcesFailed, err)
	}
	for i := range markets {
		if built, berr := g.buildFromMarket(&markets[i]); berr == nil {
			return built, nil
		}
	}
	return nil, fmt.Errorf("%w for %q", ErrMarketNotFound, text)
}

// buildFromGroup expands an event group into a multi-outcome Event. Child
// markets are filtered to active, unresolved, uniquely named entries with
// sane prices; source order is preserved.
func (g *Gateway) buildFromGroup(ev *polymarket.Event) (*models.Event, error) {
	if ev == nil || len(ev.Markets) == 0 {
		return nil, ErrMarketNotFound
	}

	if len(ev.Markets) == 1 {
		m := ev.Markets[0]
		built, err := g.buildFromMarket(&m)
		if err != nil {
			return nil, err
		}
		built.MarketSlug = ev.Slug
		if built.Rules == "" {
			built.Rules = ev.Description
		}
		return built, nil
	}

	outcomes := filterGroupMarkets(ev.Markets)
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: no tradable outcomes in group %q", ErrMarketNotFound, ev.Slug)
	}

	built := &models.Event{
		Question:   ev.Title,
		Rules:      ev.Description,
		MarketSlug: ev.Slug,
		MarketID:   ev.ID,
		Outcomes:   outcomes,
	}
	applyEndDate(built, ev.EndDate)
	return built, nil
}

// filterGroupMarkets drops closed, resolved, expired, duplicate-named, and
// degenerately priced child markets.
func filterGroupMarkets(markets []polymarket.Market) []models.Outcome {
	now := time.Now()
	seen := map[string]bool{}
	outcomes := make([]models.Outcome, 0, len(markets))

	for i := range markets {
		m := &markets[i]
		if !m.Active || m.Closed || m.Winner != "" {
			continue
		}
		name := strings.TrimSpace(m.GroupItemTitle)
		if name == "" {
			name = strings.TrimSpace(m.Question)
		}
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		if et := m.EndTime(); et != nil && et.Before(now) {
			continue
		}
		price := m.LeadPrice()
		if price == nil {
			continue
		}
		seen[key] = true

		tokenID := ""
		if len(m.ClobTokenIds) > 0 {
			tokenID = m.ClobTokenIds[0]
		}
		outcomes = append(outcomes, models.Outcome{
			Name:              name,
			MarketProbability: models.Float(*price * 100),
			Active:            true,
			GroupKey:          m.GroupItemThreshold,
			MarketID:          m.ID,
			TokenID:           tokenID,
		})
	}
	return outcomes
}

// buildFromMarket shapes a lone binary market as a single-outcome Event.
func (g *Gateway) buildFromMarket(m *polymarket.Market) (*models.Event, error) {
	if m == nil || m.Question == "" {
		return nil, ErrMarketNotFound
	}
	if !m.Active || m.Closed || m.Winner != "" {
		return nil, fmt.Errorf("%w: market %q is not tradable", ErrMarketNotFound, m.Slug)
	}

	outcome := models.Outcome{
		Name:     "Yes",
		Active:   true,
		MarketID: m.ID,
	}
	if p := m.LeadPrice(); p != nil {
		outcome.MarketProbability = models.Float(*p * 100)
	}
	if len(m.ClobTokenIds) > 0 {
		outcome.TokenID = m.ClobTokenIds[0]
	}

	built := &models.Event{
		Question:   m.Question,
		Rules:      m.Description,
		MarketSlug: m.Slug,
		MarketID:   m.ID,
		Outcomes:   []models.Outcome{outcome},
	}
	applyEndDate(built, m.EndDate)
	return built, nil
}

func applyEndDate(ev *models.Event, raw string) {
	m := polymarket.Market{EndDate: raw}
	if et := m.EndTime(); et != nil {
		ev.ResolutionDate = et
		days := time.Until(*et).Hours() / 24
		if days < 0 {
			days = 0
		}
		ev.DaysToResolution = models.Float(days)
	}
}

// MockEvent builds the synthetic substitute used after total resolution
// failure. Downstream treats it like any event except that probability
// filtering and trade signals are suppressed.
func MockEvent(ref models.EventReference) *models.Event {
	question := ref.Value
	if ref.Kind != models.RefFreeText {
		question = "Will " + strings.ReplaceAll(ref.Value, "-", " ") + "?"
	}
	return &models.Event{
		Question: question,
		Outcomes: []models.Outcome{{Name: "Yes", Active: true}},
		IsMock:   true,
	}
}

func joinErrs(errs []error) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
