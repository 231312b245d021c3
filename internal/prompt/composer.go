// Package prompt builds the per-model forecasting prompts. Pure string
// work: the composer never touches the network.
package prompt

import (
	"fmt"
	"strings"

	"github.com/leeaandrob/fusecast/internal/classify"
	"github.com/leeaandrob/fusecast/internal/models"
)

// rulesCap bounds the resolution-rules excerpt so long market descriptions
// do not crowd out the instructions.
const rulesCap = 600

// Request identifies what a single prompt is about.
type Request struct {
	Event   *models.Event
	Outcome models.Outcome
	ModelID string
	Dim     classify.Dimension
}

// Compose renders the full prompt for one (model, outcome) pair.
func Compose(req Request) string {
	ev := req.Event

	var b strings.Builder

	b.WriteString("You are a forecasting analyst for prediction markets.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", ev.Question)

	if ev.IsMultiOption() {
		fmt.Fprintf(&b, "Assess this specific outcome: %q\n", req.Outcome.Name)
		b.WriteString(siblingBlock(ev, req.Outcome.Name))
	}

	if rules := truncate(ev.Rules, rulesCap); rules != "" {
		fmt.Fprintf(&b, "\nResolution rules (excerpt):\n%s\n", rules)
	}

	b.WriteString("\nMarket context:\n")
	if req.Outcome.MarketProbability != nil {
		fmt.Fprintf(&b, "- Current market probability: %.1f%%\n", *req.Outcome.MarketProbability)
	} else {
		b.WriteString("- Current market probability: unavailable\n")
	}
	fmt.Fprintf(&b, "- Days until resolution: %.0f\n", ev.DaysLeft())

	if ev.Enrichment != nil {
		b.WriteString(enrichmentBlock(ev.Enrichment))
	}

	fmt.Fprintf(&b, "\nAnalytic angle for this assessment: %s\n", req.Dim.Description)

	b.WriteString(`
Respond with ONLY a JSON object, no other text:
{"probability": <number 0-100>, "confidence": "low"|"medium"|"high", "reasoning": "<one or two short sentences>"}
`)

	return b.String()
}

// siblingBlock lists competing outcomes so the model sees the full field.
func siblingBlock(ev *models.Event, current string) string {
	var b strings.Builder
	b.WriteString("Other outcomes in this event:\n")
	listed := 0
	for _, o := range ev.Outcomes {
		if o.Name == current {
			continue
		}
		if listed >= 10 {
			fmt.Fprintf(&b, "- (and %d more)\n", len(ev.Outcomes)-1-listed)
			break
		}
		if o.MarketProbability != nil {
			fmt.Fprintf(&b, "- %s: %.1f%%\n", o.Name, *o.MarketProbability)
		} else {
			fmt.Fprintf(&b, "- %s\n", o.Name)
		}
		listed++
	}
	return b.String()
}

func enrichmentBlock(ec *models.EnrichmentContext) string {
	var b strings.Builder
	if ec.WorldTemperature != nil {
		fmt.Fprintf(&b, "- Global tension index (0 calm - 100 crisis): %.0f\n", *ec.WorldTemperature)
	}
	if ec.SentimentSummary != "" {
		fmt.Fprintf(&b, "- Sentiment snapshot: %s\n", ec.SentimentSummary)
	}
	if ec.NewsSummary != "" {
		fmt.Fprintf(&b, "\nRecent news summary:\n%s\n", ec.NewsSummary)
	}
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
