// Package report renders a Prediction as the user-facing text block.
package report

import (
	"fmt"
	"strings"

	"github.com/leeaandrob/fusecast/internal/models"
)

// Format renders the full report.
func Format(p *models.Prediction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 %s\n", p.Event.Question)
	if p.Event.MarketSlug != "" {
		fmt.Fprintf(&b, "Market: %s\n", p.Event.MarketSlug)
	}
	if p.Event.IsMock {
		b.WriteString("⚠️ Market data unavailable — synthetic event, no live prices.\n")
	}
	if p.Event.ResolutionDate != nil {
		fmt.Fprintf(&b, "Resolves: %s (%.0f days)\n", p.Event.ResolutionDate.Format("2006-01-02"), p.Event.DaysLeft())
	}
	fmt.Fprintf(&b, "Category: %s | Family: %s\n", p.Event.Category, p.Event.FamilyType)

	for i := range p.Outcomes {
		b.WriteString("\n")
		b.WriteString(formatOutcome(&p.Outcomes[i], p.Event.IsMultiOption()))
	}

	b.WriteString("\n")
	b.WriteString(formatNormalization(&p.Normalization))

	if p.TradeSignal != nil {
		b.WriteString("\n")
		b.WriteString(formatSignal(p.TradeSignal))
	}

	if p.TimedOut {
		b.WriteString("\n⏱ Deadline hit — partial results shown.\n")
	}
	fmt.Fprintf(&b, "\nGenerated in %.1fs\n", p.Elapsed.Seconds())

	return b.String()
}

func formatOutcome(o *models.FusedOutcome, multi bool) string {
	var b strings.Builder

	if multi {
		fmt.Fprintf(&b, "▸ %s\n", o.Name)
	}

	if o.ModelOnlyProb == nil {
		b.WriteString("  Model consensus: unavailable\n")
	} else {
		fmt.Fprintf(&b, "  Model consensus: %.1f%%", *o.ModelOnlyProb)
		if o.Normalized {
			b.WriteString(" (normalized)")
		}
		if o.CalibrationApplied {
			b.WriteString(" (calibrated)")
		}
		b.WriteString("\n")
	}
	if o.MarketProbability != nil {
		fmt.Fprintf(&b, "  Market price:    %.1f%%\n", *o.MarketProbability)
	}
	if o.BlendedProb != nil {
		fmt.Fprintf(&b, "  Blended:         %.1f%%\n", *o.BlendedProb)
	}
	if o.ModelCount > 0 {
		fmt.Fprintf(&b, "  Models: %d | Uncertainty: ±%.1f | Disagreement: %.2f\n", o.ModelCount, o.Uncertainty, o.Disagreement)
	}

	for _, r := range o.Responses {
		if !r.Valid() {
			fmt.Fprintf(&b, "    ✗ %s: %s\n", displayName(r), r.Error)
			continue
		}
		fmt.Fprintf(&b, "    • %s: %.1f%% (%s, %.1fs)\n", displayName(r), r.Probability, r.Confidence, r.Latency.Seconds())
	}

	if o.Summary != "" {
		fmt.Fprintf(&b, "  💬 %s\n", o.Summary)
	}
	return b.String()
}

func formatNormalization(n *models.NormalizationInfo) string {
	if n.Normalized {
		note := ""
		if n.Reason == "sum_guard" {
			note = " (forced: totals far from 100)"
		}
		return fmt.Sprintf("Normalization: %.1f → 100.0 across outcomes%s\n", n.TotalBefore, note)
	}
	if n.FamilyType == models.FamilyMutuallyExclusive {
		return "Normalization: skipped (no probability mass)\n"
	}
	return fmt.Sprintf("Normalization: not applied (%s family, outcomes independent)\n", n.FamilyType)
}

func formatSignal(s *models.TradeSignal) string {
	icon := "⏸"
	switch s.Signal {
	case models.SignalBuy:
		icon = "🟢"
	case models.SignalSell:
		icon = "🔴"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Signal: %s", icon, s.Signal)
	if s.OutcomeName != "" {
		fmt.Fprintf(&b, " (%s)", s.OutcomeName)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  EV: %+.2f pts | Annualized: %+.1f | Risk: %.2f\n", s.EV, s.AnnualizedEV, s.RiskFactor)
	fmt.Fprintf(&b, "  %s\n", s.Reason)
	return b.String()
}

func displayName(r models.ModelResponse) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Model
}
