// Package trade turns a fused outcome into a BUY/HOLD/SELL recommendation.
package trade

import (
	"fmt"
	"math"

	"github.com/leeaandrob/fusecast/internal/config"
	"github.com/leeaandrob/fusecast/internal/models"
)

// Evaluator applies the configured EV and risk thresholds.
type Evaluator struct {
	params config.TradeParams
}

// NewEvaluator creates an evaluator.
func NewEvaluator(params config.TradeParams) *Evaluator {
	return &Evaluator{params: params}
}

// Evaluate computes the trade signal for one outcome. It returns nil when
// any required input is missing: no market price, no model consensus, or a
// mock event upstream. EV is the signed gap between the model consensus
// and the market, in percentage points.
func (e *Evaluator) Evaluate(fused *models.FusedOutcome, daysToResolution float64) *models.TradeSignal {
	if fused == nil || fused.ModelOnlyProb == nil || fused.BlendedProb == nil || fused.MarketProbability == nil {
		return nil
	}

	days := math.Max(daysToResolution, 1)
	ev := *fused.ModelOnlyProb - *fused.MarketProbability
	annualized := ev * (365 / days)
	risk := clamp(fused.Uncertainty/10+math.Min(daysToResolution, 365)/730, 0, 1)

	signal := models.SignalHold
	var reason string
	switch {
	case risk >= e.params.RiskCeiling:
		signal = models.SignalSell
		reason = fmt.Sprintf("Risk factor %.2f at or above ceiling %.2f", risk, e.params.RiskCeiling)
	case ev < -e.params.EVSellThreshold:
		signal = models.SignalSell
		reason = fmt.Sprintf("Negative EV (%.2f) below -%.1f threshold", ev, e.params.EVSellThreshold)
	case ev > e.params.EVBuyThreshold && risk < e.params.RiskThreshold:
		signal = models.SignalBuy
		reason = fmt.Sprintf("Positive EV (+%.2f) with low risk (%.2f)", ev, risk)
	case ev > e.params.EVBuyThreshold:
		reason = fmt.Sprintf("Positive EV (+%.2f) but risk %.2f exceeds %.2f", ev, risk, e.params.RiskThreshold)
	default:
		reason = fmt.Sprintf("EV %.2f inside the +/-%.1f band", ev, e.params.EVBuyThreshold)
	}

	return &models.TradeSignal{
		Signal:       signal,
		OutcomeName:  fused.Name,
		EV:           ev,
		AnnualizedEV: annualized,
		RiskFactor:   risk,
		Reason:       reason,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
