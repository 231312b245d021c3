package classify

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/models"
)

// Classification is the full classifier output for one event.
type Classification struct {
	Category   string
	FamilyType models.FamilyType
	FamilyRule string
	// Dimensions maps model ID to its assigned analytic viewpoint.
	Dimensions map[string]Dimension
}

// Classify is a pure function of the event and the configured model IDs.
// The same event and pool always produce the same assignment: models are
// sorted lexicographically and walk the category's dimension preference
// round-robin.
func Classify(ev *models.Event, modelIDs []string) Classification {
	category := ev.DetectCategory()
	family, rule := classifyFamily(ev)

	sorted := make([]string, len(modelIDs))
	copy(sorted, modelIDs)
	sort.Strings(sorted)

	prefs := preferenceFor(category)
	dims := make(map[string]Dimension, len(sorted))
	for i, id := range sorted {
		dims[id] = prefs[i%len(prefs)]
	}

	log.Debug().
		Str("category", category).
		Str("family", string(family)).
		Str("rule", rule).
		Int("models", len(sorted)).
		Msg("Event classified")

	return Classification{
		Category:   category,
		FamilyType: family,
		FamilyRule: rule,
		Dimensions: dims,
	}
}

// Apply stamps the classification onto the event.
func (c Classification) Apply(ev *models.Event) {
	ev.Category = c.Category
	ev.FamilyType = c.FamilyType
	ev.FamilyRule = c.FamilyRule
}
