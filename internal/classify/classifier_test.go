package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeaandrob/fusecast/internal/models"
)

func outcomes(names ...string) []models.Outcome {
	out := make([]models.Outcome, len(names))
	for i, n := range names {
		out[i] = models.Outcome{Name: n, Active: true}
	}
	return out
}

func TestClassifyFamily(t *testing.T) {
	tests := []struct {
		name   string
		event  models.Event
		family models.FamilyType
		rule   string
	}{
		{
			name:   "single outcome is binary",
			event:  models.Event{Question: "Will X happen?", Outcomes: outcomes("Yes")},
			family: models.FamilyBinary,
			rule:   "single_outcome",
		},
		{
			name:   "yes/no pair is binary",
			event:  models.Event{Question: "Will X happen?", Outcomes: outcomes("Yes", "No")},
			family: models.FamilyBinary,
			rule:   "complementary_pair",
		},
		{
			name: "date series is conditional",
			event: models.Event{
				Question: "When will the bill pass?",
				Outcomes: outcomes("By October 30", "By November 15", "By December 1"),
			},
			family: models.FamilyConditional,
			rule:   "date_buckets",
		},
		{
			name: "price thresholds are conditional",
			event: models.Event{
				Question: "Bitcoin price on Dec 31?",
				Outcomes: outcomes("$100k or more", "$150k or more", "$200k or more"),
			},
			family: models.FamilyConditional,
			rule:   "threshold_series",
		},
		{
			name: "who question is mutually exclusive",
			event: models.Event{
				Question: "Who will win the nomination?",
				Outcomes: outcomes("Candidate Smith", "Candidate Jones", "Candidate Lee"),
			},
			family: models.FamilyMutuallyExclusive,
			rule:   "competition_title",
		},
		{
			name: "prices summing to 100 are mutually exclusive",
			event: models.Event{
				Question: "Next host city",
				Outcomes: []models.Outcome{
					{Name: "Paris", Active: true, MarketProbability: models.Float(55)},
					{Name: "Madrid", Active: true, MarketProbability: models.Float(44)},
				},
			},
			family: models.FamilyMutuallyExclusive,
			rule:   "probability_window",
		},
		{
			name: "anything else is hybrid",
			event: models.Event{
				Question: "Outcomes grab bag",
				Outcomes: outcomes("Alpha", "Beta", "Gamma"),
			},
			family: models.FamilyHybrid,
			rule:   "default_hybrid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fam, rule := classifyFamily(&tt.event)
			assert.Equal(t, tt.family, fam)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassifyDeterministicAssignment(t *testing.T) {
	ev := &models.Event{
		Question: "Will the Fed cut interest rates in September?",
		Outcomes: outcomes("Yes"),
	}
	pool := []string{"gpt-4o", "claude-3-7-sonnet-latest", "gemini-2.5-pro"}

	first := Classify(ev, pool)
	second := Classify(ev, []string{"gemini-2.5-pro", "gpt-4o", "claude-3-7-sonnet-latest"})

	assert.Equal(t, models.CategoryEconomy, first.Category)
	assert.Equal(t, models.FamilyBinary, first.FamilyType)
	require.Len(t, first.Dimensions, 3)

	// Pool order must not matter.
	assert.Equal(t, first.Dimensions, second.Dimensions)

	// Economy leads with the statistical view for the first sorted model.
	assert.Equal(t, DimStatisticalBaseRate, first.Dimensions["claude-3-7-sonnet-latest"])
}

func TestClassifyApply(t *testing.T) {
	ev := &models.Event{Question: "Will Ukraine and Russia sign a ceasefire?", Outcomes: outcomes("Yes")}
	c := Classify(ev, []string{"gpt-4o"})
	c.Apply(ev)

	assert.Equal(t, models.CategoryGeopolitics, ev.Category)
	assert.Equal(t, models.FamilyBinary, ev.FamilyType)
	assert.Equal(t, "single_outcome", ev.FamilyRule)
}
