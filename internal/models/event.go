// Package models defines the core data structures for FuseCast.
package models

import (
	"strings"
	"time"
)

// ReferenceKind identifies how the user pointed at an event.
type ReferenceKind string

const (
	RefFreeText  ReferenceKind = "free_text"
	RefMarketURL ReferenceKind = "market_url"
	RefSlug      ReferenceKind = "slug"
)

// EventReference is the opaque user input handed to the gateway.
type EventReference struct {
	Kind  ReferenceKind `json:"kind"`
	Value string        `json:"value"`
}

// FamilyType describes how a multi-outcome event resolves.
type FamilyType string

const (
	FamilyBinary            FamilyType = "binary"
	FamilyMutuallyExclusive FamilyType = "mutually_exclusive"
	FamilyConditional       FamilyType = "conditional"
	FamilyHybrid            FamilyType = "hybrid"
)

// Outcome is a single resolvable option of an event.
type Outcome struct {
	Name string `bson:"name" json:"name"`

	// Implied probability from the current market price, in percent.
	// Nil when no price is available.
	MarketProbability *float64 `bson:"market_probability,omitempty" json:"market_probability,omitempty"`

	Active bool `bson:"active" json:"active"`

	// GroupKey buckets conditional outcomes (e.g. date thresholds).
	GroupKey string `bson:"group_key,omitempty" json:"group_key,omitempty"`

	// Source identifiers, kept for order-book lookups.
	MarketID string `bson:"market_id,omitempty" json:"market_id,omitempty"`
	TokenID  string `bson:"token_id,omitempty" json:"token_id,omitempty"`
}

// EnrichmentContext carries optional auxiliary signals injected into prompts.
type EnrichmentContext struct {
	WorldTemperature *float64 `bson:"world_temperature,omitempty" json:"world_temperature,omitempty"`
	SentimentSummary string   `bson:"sentiment_summary,omitempty" json:"sentiment_summary,omitempty"`
	NewsSummary      string   `bson:"news_summary,omitempty" json:"news_summary,omitempty"`
}

// Event is the canonical resolved form of an event reference.
type Event struct {
	Question string `bson:"question" json:"question"`
	Rules    string `bson:"rules,omitempty" json:"rules,omitempty"`

	MarketSlug string `bson:"market_slug,omitempty" json:"market_slug,omitempty"`
	MarketID   string `bson:"market_id,omitempty" json:"market_id,omitempty"`

	ResolutionDate   *time.Time `bson:"resolution_date,omitempty" json:"resolution_date,omitempty"`
	DaysToResolution *float64   `bson:"days_to_resolution,omitempty" json:"days_to_resolution,omitempty"`

	Outcomes []Outcome `bson:"outcomes" json:"outcomes"`

	// Filled by the classifier.
	FamilyType FamilyType `bson:"family_type,omitempty" json:"family_type,omitempty"`
	// FamilyRule names the classification rule that decided FamilyType,
	// surfaced for later tuning.
	FamilyRule string `bson:"family_rule,omitempty" json:"family_rule,omitempty"`
	Category   string `bson:"category,omitempty" json:"category,omitempty"`

	// IsMock marks a synthetic event substituted after total resolution
	// failure. Downstream treats it identically except that the
	// low-probability filter and trade signals are suppressed.
	IsMock bool `bson:"is_mock,omitempty" json:"is_mock,omitempty"`

	Enrichment *EnrichmentContext `bson:"enrichment,omitempty" json:"enrichment,omitempty"`
}

// IsMultiOption reports whether the event expanded into more than one outcome.
func (e *Event) IsMultiOption() bool {
	return len(e.Outcomes) > 1
}

// MarketProbability returns the lead outcome's market probability, or nil.
func (e *Event) MarketProbability() *float64 {
	if len(e.Outcomes) == 0 {
		return nil
	}
	return e.Outcomes[0].MarketProbability
}

// ActiveOutcomes returns the outcomes still open for resolution.
func (e *Event) ActiveOutcomes() []Outcome {
	active := make([]Outcome, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		if o.Active {
			active = append(active, o)
		}
	}
	return active
}

// DaysLeft returns the days to resolution with a floor of 1, defaulting
// to 30 when unknown. Used by prompts and the trade evaluator.
func (e *Event) DaysLeft() float64 {
	if e.DaysToResolution == nil {
		return 30
	}
	if *e.DaysToResolution < 1 {
		return 1
	}
	return *e.DaysToResolution
}

// DetectCategory categorizes the event from its question text.
func (e *Event) DetectCategory() string {
	text := strings.ToLower(e.Question + " " + e.Rules)

	for _, cat := range categoryOrder {
		for _, kw := range CategoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return CategoryOther
}

// Float returns a pointer to v. Convenience for nullable probability fields.
func Float(v float64) *float64 {
	return &v
}
