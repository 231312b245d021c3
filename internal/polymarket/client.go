// Package polymarket provides a client for Polymarket's public APIs.
// Implements Gamma API lookups and CLOB order-book reads used by the
// market gateway.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// API endpoints
	GammaAPIBase = "https://gamma-api.polymarket.com"
	CLOBAPIBase  = "https://clob.polymarket.com"

	// Per-request budget. The gateway layers its own overall deadline on
	// top via context, so individual calls stay short.
	requestTimeout = 8 * time.Second
)

// Client provides access to Polymarket APIs.
type Client struct {
	gamma *resty.Client
	clob  *resty.Client
}

// NewClient creates a new Polymarket client.
func NewClient() *Client {
	return &Client{
		gamma: resty.New().
			SetBaseURL(GammaAPIBase).
			SetTimeout(requestTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second),
		clob: resty.New().
			SetBaseURL(CLOBAPIBase).
			SetTimeout(requestTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second),
	}
}

// JSONStringArray handles fields that come as JSON-encoded strings.
type JSONStringArray []string

func (j *JSONStringArray) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as a regular array first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*j = arr
		return nil
	}

	// Try to unmarshal as a string containing JSON array
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	if str == "" {
		*j = []string{}
		return nil
	}

	if err := json.Unmarshal([]byte(str), &arr); err != nil {
		return err
	}
	*j = arr
	return nil
}

// Market represents a prediction market.
type Market struct {
	ID                 string          `json:"id"`
	Question           string          `json:"question"`
	ConditionID        string          `json:"conditionId"`
	Slug               string          `json:"slug"`
	EndDate            string          `json:"endDate"`
	Description        string          `json:"description"`
	Outcomes           JSONStringArray `json:"outcomes"`
	OutcomePrices      JSONStringArray `json:"outcomePrices"`
	Active             bool            `json:"active"`
	Closed             bool            `json:"closed"`
	GroupItemTitle     string          `json:"groupItemTitle"`
	GroupItemThreshold string          `json:"groupItemThreshold"`
	Winner             string          `json:"winner"`
	VolumeNum          float64         `json:"volumeNum"`
	LiquidityNum       float64         `json:"liquidityNum"`
	ClobTokenIds       JSONStringArray `json:"clobTokenIds"`

	// Computed fields
	YesPrice float64 `json:"-"`
	NoPrice  float64 `json:"-"`
}

// LeadPrice returns the first outcome price in (0,1), or nil when the
// market carries no parseable price.
func (m *Market) LeadPrice() *float64 {
	if len(m.OutcomePrices) == 0 {
		return nil
	}
	p, err := strconv.ParseFloat(m.OutcomePrices[0], 64)
	if err != nil || p <= 0 || p >= 1 {
		return nil
	}
	return &p
}

// EndTime parses the market end date, nil when absent or malformed.
func (m *Market) EndTime() *time.Time {
	if m.EndDate == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, m.EndDate); err == nil {
			return &t
		}
	}
	return nil
}

// Event represents a group of related markets.
type Event struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Active      bool     `json:"active"`
	Closed      bool     `json:"closed"`
	Archived    bool     `json:"archived"`
	Liquidity   float64  `json:"liquidity"`
	Volume      float64  `json:"volume"`
	Markets     []Market `json:"markets"`
	Tags        []Tag    `json:"tags"`
}

// Tag represents a category tag.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// MarketFilters represents filters for market queries.
type MarketFilters struct {
	Active    *bool
	Closed    *bool
	Limit     int
	Offset    int
	Order     string
	Ascending bool
	TextQuery string
	Slug      string
}

// GetMarkets retrieves markets from Gamma API.
func (c *Client) GetMarkets(ctx context.Context, filters MarketFilters) ([]Market, error) {
	params := url.Values{}

	if filters.Active != nil {
		params.Set("active", strconv.FormatBool(*filters.Active))
	}
	if filters.Closed != nil {
		params.Set("closed", strconv.FormatBool(*filters.Closed))
	}
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Offset > 0 {
		params.Set("offset", strconv.Itoa(filters.Offset))
	}
	if filters.Order != "" {
		params.Set("order", filters.Order)
		// Polymarket API defaults to ascending=true
		params.Set("ascending", strconv.FormatBool(filters.Ascending))
	}
	if filters.TextQuery != "" {
		params.Set("_q", filters.TextQuery)
	}
	if filters.Slug != "" {
		params.Set("slug", filters.Slug)
	}

	log.Debug().
		Str("endpoint", "/markets").
		Str("params", params.Encode()).
		Msg("Fetching markets from Gamma API")

	resp, err := c.gamma.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/markets")

	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("markets API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var markets []Market
	if err := json.Unmarshal(resp.Body(), &markets); err != nil {
		return nil, fmt.Errorf("failed to parse markets: %w", err)
	}

	for i := range markets {
		if len(markets[i].OutcomePrices) >= 2 {
			markets[i].YesPrice, _ = strconv.ParseFloat(markets[i].OutcomePrices[0], 64)
			markets[i].NoPrice, _ = strconv.ParseFloat(markets[i].OutcomePrices[1], 64)
		}
	}

	return markets, nil
}

// GetMarketBySlug retrieves a single market by its URL slug.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (*Market, error) {
	markets, err := c.GetMarkets(ctx, MarketFilters{Slug: slug, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("no market found for slug %q", slug)
	}
	return &markets[0], nil
}

// GetEventBySlug retrieves a single event, with its member markets, by slug.
func (c *Client) GetEventBySlug(ctx context.Context, slug string) (*Event, error) {
	resp, err := c.gamma.R().
		SetContext(ctx).
		Get("/events/slug/" + slug)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("event API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var event Event
	if err := json.Unmarshal(resp.Body(), &event); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}

	return &event, nil
}

// SearchMarkets searches active markets by free-text query, highest volume
// first.
func (c *Client) SearchMarkets(ctx context.Context, query string, limit int) ([]Market, error) {
	active := true
	closed := false

	return c.GetMarkets(ctx, MarketFilters{
		Active:    &active,
		Closed:    &closed,
		TextQuery: query,
		Limit:     limit,
		Order:     "volume24hr",
		Ascending: false,
	})
}

// Midpoint is the CLOB midpoint price for one token.
type Midpoint struct {
	Mid string `json:"mid"`
}

// GetMidpoint reads the live order-book midpoint for a CLOB token. Used as
// a fresher price source than the Gamma snapshot when a token ID is known.
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	resp, err := c.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		Get("/midpoint")

	if err != nil {
		return 0, fmt.Errorf("failed to fetch midpoint: %w", err)
	}

	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("midpoint API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var mp Midpoint
	if err := json.Unmarshal(resp.Body(), &mp); err != nil {
		return 0, fmt.Errorf("failed to parse midpoint: %w", err)
	}

	mid, err := strconv.ParseFloat(mp.Mid, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid midpoint %q: %w", mp.Mid, err)
	}
	return mid, nil
}
