package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leeaandrob/fusecast/internal/models"
)

func TestFormatBinaryWithSignal(t *testing.T) {
	p := &models.Prediction{
		Event: models.Event{
			Question:   "Will X happen by December?",
			MarketSlug: "x-by-december",
			Category:   models.CategoryOther,
			FamilyType: models.FamilyBinary,
			Outcomes:   []models.Outcome{{Name: "Yes", Active: true}},
		},
		Outcomes: []models.FusedOutcome{{
			Name:              "Yes",
			ModelOnlyProb:     models.Float(70),
			BlendedProb:       models.Float(66),
			MarketProbability: models.Float(50),
			Uncertainty:       1.6,
			Disagreement:      0.03,
			ModelCount:        3,
			Summary:           "Consistent upward trend.",
			Responses: []models.ModelResponse{
				{Model: "gpt-4o", DisplayName: "GPT-4o", Probability: 70, Confidence: models.ConfidenceMedium, Latency: 2 * time.Second},
				{Model: "grok-4", Error: "timeout"},
			},
		}},
		Normalization: models.NormalizationInfo{FamilyType: models.FamilyBinary},
		TradeSignal: &models.TradeSignal{
			Signal: models.SignalBuy, OutcomeName: "Yes",
			EV: 20, AnnualizedEV: 243.3, RiskFactor: 0.24,
			Reason: "Positive EV (+20.00) with low risk (0.24)",
		},
		Elapsed: 8 * time.Second,
	}

	out := Format(p)

	assert.Contains(t, out, "Will X happen by December?")
	assert.Contains(t, out, "Model consensus: 70.0%")
	assert.Contains(t, out, "Blended:         66.0%")
	assert.Contains(t, out, "GPT-4o: 70.0% (medium")
	assert.Contains(t, out, "✗ grok-4: timeout")
	assert.Contains(t, out, "Signal: BUY (Yes)")
	assert.Contains(t, out, "EV: +20.00 pts")
	assert.Contains(t, out, "not applied (binary family")
	assert.NotContains(t, out, "Deadline hit")
}

func TestFormatNormalizedMultiOutcome(t *testing.T) {
	p := &models.Prediction{
		Event: models.Event{
			Question:   "Who wins?",
			Category:   models.CategoryPolitics,
			FamilyType: models.FamilyMutuallyExclusive,
			Outcomes:   []models.Outcome{{Name: "A", Active: true}, {Name: "B", Active: true}},
		},
		Outcomes: []models.FusedOutcome{
			{Name: "A", ModelOnlyProb: models.Float(47.6), Normalized: true, ModelCount: 2},
			{Name: "B", ModelOnlyProb: models.Float(52.4), Normalized: true, ModelCount: 2},
		},
		Normalization: models.NormalizationInfo{
			FamilyType:  models.FamilyMutuallyExclusive,
			TotalBefore: 105,
			TotalAfter:  models.Float(100),
			Normalized:  true,
			Reason:      "type",
		},
	}

	out := Format(p)
	assert.Contains(t, out, "▸ A")
	assert.Contains(t, out, "▸ B")
	assert.Contains(t, out, "(normalized)")
	assert.Contains(t, out, "Normalization: 105.0 → 100.0")
}

func TestFormatMockAndTimeout(t *testing.T) {
	p := &models.Prediction{
		Event: models.Event{
			Question:   "Will it happen?",
			IsMock:     true,
			FamilyType: models.FamilyBinary,
			Outcomes:   []models.Outcome{{Name: "Yes", Active: true}},
		},
		Outcomes: []models.FusedOutcome{{
			Name:    "Yes",
			Summary: "no model predictions available",
		}},
		Normalization: models.NormalizationInfo{FamilyType: models.FamilyBinary},
		TimedOut:      true,
	}

	out := Format(p)
	assert.Contains(t, out, "synthetic event")
	assert.Contains(t, out, "Model consensus: unavailable")
	assert.Contains(t, out, "Deadline hit")
}
