package classify

import (
	"github.com/leeaandrob/fusecast/internal/models"
)

// Dimension is an analytic viewpoint assigned to one model so the pool
// covers complementary angles instead of five copies of the same take.
type Dimension struct {
	ID          string
	Description string
}

// The fixed dimension registry.
var (
	DimStatisticalBaseRate = Dimension{
		ID:          "statistical-base-rate",
		Description: "Anchor on historical base rates for events of this kind before adjusting for specifics.",
	}
	DimQualitativeRisk = Dimension{
		ID:          "qualitative-risk",
		Description: "Focus on tail risks, failure modes, and what could derail the consensus path.",
	}
	DimPatternMatch = Dimension{
		ID:          "pattern-match",
		Description: "Compare against the closest historical analogues and weigh how this case differs.",
	}
	DimPolicyDomain = Dimension{
		ID:          "policy-domain",
		Description: "Reason from institutional incentives, rules, and the actors empowered to decide.",
	}
	DimNarrativeContext = Dimension{
		ID:          "narrative-context",
		Description: "Weigh current momentum, media narrative, and how sentiment could shift before resolution.",
	}
)

// dimensionPreference orders the registry per category; the first entries
// go to the lexicographically first models.
var dimensionPreference = map[string][]Dimension{
	models.CategoryPolitics:      {DimPolicyDomain, DimStatisticalBaseRate, DimNarrativeContext, DimPatternMatch, DimQualitativeRisk},
	models.CategoryGeopolitics:   {DimQualitativeRisk, DimPolicyDomain, DimPatternMatch, DimNarrativeContext, DimStatisticalBaseRate},
	models.CategoryEconomy:       {DimStatisticalBaseRate, DimPatternMatch, DimPolicyDomain, DimQualitativeRisk, DimNarrativeContext},
	models.CategoryTechnology:    {DimPatternMatch, DimStatisticalBaseRate, DimNarrativeContext, DimQualitativeRisk, DimPolicyDomain},
	models.CategorySports:        {DimStatisticalBaseRate, DimPatternMatch, DimQualitativeRisk, DimNarrativeContext, DimPolicyDomain},
	models.CategoryEntertainment: {DimNarrativeContext, DimPatternMatch, DimStatisticalBaseRate, DimQualitativeRisk, DimPolicyDomain},
	models.CategoryOther:         {DimStatisticalBaseRate, DimQualitativeRisk, DimPatternMatch, DimNarrativeContext, DimPolicyDomain},
}

func preferenceFor(category string) []Dimension {
	if prefs, ok := dimensionPreference[category]; ok {
		return prefs
	}
	return dimensionPreference[models.CategoryOther]
}
