// Package classify determines an event's category, resolution family, and
// the analytic dimension assigned to each model.
package classify

import (
	"regexp"
	"strings"

	"github.com/leeaandrob/fusecast/internal/models"
)

// familyRule is one entry of the ordered classification table. The first
// rule that matches decides the family; its name is surfaced on the event
// so classification decisions can be tuned from production logs.
type familyRule struct {
	Name  string
	Match func(ev *models.Event) (models.FamilyType, bool)
}

var (
	datePattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b\.?\s*\d{1,2}?|\b\d{4}\b|\bq[1-4]\b`)
	rangePattern = regexp.MustCompile(`(?i)(\$[\d,.]+[kmb]?|\d+(\.\d+)?%|\b\d{2,}\b)\s*(\+|or (more|higher|above|less|lower|below))|(above|below|over|under|between)\s`)
	whoPattern   = regexp.MustCompile(`(?i)^\s*(who|which|what)\b`)
)

// conditionalMarkers indicate outcomes that can resolve independently.
var conditionalMarkers = []string{"by ", "before ", "on or before", "in 20", "by end of", "reaches", "hits"}

// familyRules is evaluated in order; order encodes specificity.
var familyRules = []familyRule{
	{
		Name: "single_outcome",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			if len(ev.Outcomes) == 1 {
				return models.FamilyBinary, true
			}
			return "", false
		},
	},
	{
		Name: "complementary_pair",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			if len(ev.Outcomes) != 2 {
				return "", false
			}
			a := strings.ToLower(strings.TrimSpace(ev.Outcomes[0].Name))
			b := strings.ToLower(strings.TrimSpace(ev.Outcomes[1].Name))
			if (a == "yes" && b == "no") || (a == "no" && b == "yes") {
				return models.FamilyBinary, true
			}
			return "", false
		},
	},
	{
		Name: "date_buckets",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			dated := 0
			for _, o := range ev.Outcomes {
				name := strings.ToLower(o.Name)
				if datePattern.MatchString(name) || hasMarker(name, conditionalMarkers) {
					dated++
				}
			}
			// Half the set talking about dates or thresholds is enough.
			if dated*2 >= len(ev.Outcomes) && dated >= 2 {
				return models.FamilyConditional, true
			}
			return "", false
		},
	},
	{
		Name: "threshold_series",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			ranged := 0
			grouped := 0
			for _, o := range ev.Outcomes {
				if rangePattern.MatchString(o.Name) {
					ranged++
				}
				if o.GroupKey != "" {
					grouped++
				}
			}
			if ranged >= 2 || grouped >= 2 {
				return models.FamilyConditional, true
			}
			return "", false
		},
	},
	{
		Name: "competition_title",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			if whoPattern.MatchString(ev.Question) && len(ev.Outcomes) >= 2 {
				return models.FamilyMutuallyExclusive, true
			}
			return "", false
		},
	},
	{
		Name: "probability_window",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			sum, count := 0.0, 0
			for _, o := range ev.Outcomes {
				if o.MarketProbability != nil {
					sum += *o.MarketProbability
					count++
				}
			}
			// A set of prices summing near 100 points at one winner slot.
			if count >= 2 && sum >= 95 && sum <= 105 {
				return models.FamilyMutuallyExclusive, true
			}
			return "", false
		},
	},
	{
		Name: "default_hybrid",
		Match: func(ev *models.Event) (models.FamilyType, bool) {
			return models.FamilyHybrid, true
		},
	},
}

func hasMarker(name string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// classifyFamily walks the rules table and returns the family plus the
// winning rule name.
func classifyFamily(ev *models.Event) (models.FamilyType, string) {
	for _, rule := range familyRules {
		if fam, ok := rule.Match(ev); ok {
			return fam, rule.Name
		}
	}
	// Unreachable: the table ends with a catch-all.
	return models.FamilyHybrid, "default_hybrid"
}
