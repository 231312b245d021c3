package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeaandrob/fusecast/internal/config"
	"github.com/leeaandrob/fusecast/internal/models"
)

func defaultParams() config.TradeParams {
	return config.TradeParams{
		EVBuyThreshold:  2.0,
		EVSellThreshold: 2.0,
		RiskThreshold:   0.6,
		RiskCeiling:     0.9,
	}
}

func fused(modelProb, marketProb, uncertainty float64) *models.FusedOutcome {
	return &models.FusedOutcome{
		Name:              "Yes",
		ModelOnlyProb:     models.Float(modelProb),
		BlendedProb:       models.Float(modelProb),
		MarketProbability: models.Float(marketProb),
		Uncertainty:       uncertainty,
	}
}

func TestEvaluateBuy(t *testing.T) {
	e := NewEvaluator(defaultParams())

	// EV +20, low uncertainty, short horizon: risk = 2/10 + 30/730 ≈ 0.24.
	sig := e.Evaluate(fused(70, 50, 2.0), 30)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.Signal)
	assert.InDelta(t, 20, sig.EV, 1e-9)
	assert.InDelta(t, 20*365.0/30.0, sig.AnnualizedEV, 1e-6)
	assert.InDelta(t, 0.241, sig.RiskFactor, 0.001)
	assert.Contains(t, sig.Reason, "Positive EV")
}

func TestEvaluateSellOnNegativeEV(t *testing.T) {
	e := NewEvaluator(defaultParams())
	sig := e.Evaluate(fused(30, 50, 2.0), 30)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalSell, sig.Signal)
	assert.InDelta(t, -20, sig.EV, 1e-9)
}

func TestEvaluateSellOnRiskCeiling(t *testing.T) {
	e := NewEvaluator(defaultParams())
	// Uncertainty 9 → 0.9 risk before the time component.
	sig := e.Evaluate(fused(70, 50, 9.0), 30)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalSell, sig.Signal)
	assert.Contains(t, sig.Reason, "ceiling")
}

func TestEvaluateHoldInsideBand(t *testing.T) {
	e := NewEvaluator(defaultParams())
	sig := e.Evaluate(fused(51, 50, 1.0), 30)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalHold, sig.Signal)
}

func TestEvaluateHoldWhenRiskBlocksBuy(t *testing.T) {
	e := NewEvaluator(defaultParams())
	// EV +20 but uncertainty 7 → risk ≈ 0.74, between threshold and ceiling.
	sig := e.Evaluate(fused(70, 50, 7.0), 30)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalHold, sig.Signal)
	assert.Contains(t, sig.Reason, "risk")
}

func TestEvaluateDayFloor(t *testing.T) {
	e := NewEvaluator(defaultParams())
	// Resolution today still annualizes over one day, not zero.
	sig := e.Evaluate(fused(70, 50, 2.0), 0)
	require.NotNil(t, sig)
	assert.InDelta(t, 20*365, sig.AnnualizedEV, 1e-6)
}

func TestEvaluateRiskClamped(t *testing.T) {
	e := NewEvaluator(defaultParams())
	sig := e.Evaluate(fused(70, 50, 50), 900)
	require.NotNil(t, sig)
	assert.InDelta(t, 1.0, sig.RiskFactor, 1e-9)
}

func TestEvaluateNilInputs(t *testing.T) {
	e := NewEvaluator(defaultParams())

	assert.Nil(t, e.Evaluate(nil, 30))

	noMarket := fused(70, 50, 2)
	noMarket.MarketProbability = nil
	assert.Nil(t, e.Evaluate(noMarket, 30))

	noModel := fused(70, 50, 2)
	noModel.ModelOnlyProb = nil
	assert.Nil(t, e.Evaluate(noModel, 30))
}
