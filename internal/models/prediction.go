package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Confidence is a model's self-reported confidence label.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ModelResponse is one model's answer for one outcome.
type ModelResponse struct {
	Model       string        `bson:"model" json:"model"`
	DisplayName string        `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Probability float64       `bson:"probability" json:"probability"` // percent
	Confidence  Confidence    `bson:"confidence" json:"confidence"`
	Reasoning   string        `bson:"reasoning,omitempty" json:"reasoning,omitempty"`
	Latency     time.Duration `bson:"latency" json:"latency"`
	Error       string        `bson:"error,omitempty" json:"error,omitempty"`
}

// Valid reports whether the response carries a usable probability.
func (r *ModelResponse) Valid() bool {
	if r == nil || r.Error != "" {
		return false
	}
	if math.IsNaN(r.Probability) || math.IsInf(r.Probability, 0) {
		return false
	}
	return r.Probability >= 0 && r.Probability <= 100
}

// FusedOutcome is the fusion result for a single outcome.
type FusedOutcome struct {
	Name string `bson:"name" json:"name"`

	// Pure model consensus in percent; nil when no model responded.
	ModelOnlyProb *float64 `bson:"model_only_prob,omitempty" json:"model_only_prob,omitempty"`
	// Consensus blended with the market price; nil only when both the
	// consensus and the market price are missing.
	BlendedProb *float64 `bson:"blended_prob,omitempty" json:"blended_prob,omitempty"`

	MarketProbability *float64 `bson:"market_probability,omitempty" json:"market_probability,omitempty"`

	Uncertainty  float64 `bson:"uncertainty" json:"uncertainty"`
	Disagreement float64 `bson:"disagreement" json:"disagreement"` // uncertainty / 50, in [0,1]
	ModelCount   int     `bson:"model_count" json:"model_count"`

	Summary            string `bson:"summary,omitempty" json:"summary,omitempty"`
	WeightSource       string `bson:"weight_source" json:"weight_source"`
	CalibrationApplied bool   `bson:"calibration_applied" json:"calibration_applied"`
	Normalized         bool   `bson:"normalized" json:"normalized"`

	// Per-model detail for the report formatter.
	Responses []ModelResponse `bson:"responses,omitempty" json:"responses,omitempty"`
}

// NormalizationInfo records what cross-outcome normalization did.
type NormalizationInfo struct {
	FamilyType  FamilyType `bson:"family_type" json:"family_type"`
	TotalBefore float64    `bson:"total_before" json:"total_before"`
	TotalAfter  *float64   `bson:"total_after,omitempty" json:"total_after,omitempty"`
	Normalized  bool       `bson:"normalized" json:"normalized"`
	// Reason is "type" for a regular mutually-exclusive scaling,
	// "sum_guard" when the consensus total forced it, empty otherwise.
	Reason          string `bson:"reason,omitempty" json:"reason,omitempty"`
	SkippedOutcomes []int  `bson:"skipped_outcomes,omitempty" json:"skipped_outcomes,omitempty"`
}

// Signal classifies a trade recommendation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalHold Signal = "HOLD"
	SignalSell Signal = "SELL"
)

// TradeSignal is the trading recommendation derived from a fused outcome.
type TradeSignal struct {
	Signal       Signal  `bson:"signal" json:"signal"`
	OutcomeName  string  `bson:"outcome_name,omitempty" json:"outcome_name,omitempty"`
	EV           float64 `bson:"ev" json:"ev"` // percentage points
	AnnualizedEV float64 `bson:"annualized_ev" json:"annualized_ev"`
	RiskFactor   float64 `bson:"risk_factor" json:"risk_factor"`
	Reason       string  `bson:"reason" json:"reason"`
}

// Prediction is the final result envelope for one pipeline invocation.
type Prediction struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	RequesterID string `bson:"requester_id,omitempty" json:"requester_id,omitempty"`

	Event         Event             `bson:"event" json:"event"`
	Outcomes      []FusedOutcome    `bson:"outcomes" json:"outcomes"`
	Normalization NormalizationInfo `bson:"normalization" json:"normalization"`
	TradeSignal   *TradeSignal      `bson:"trade_signal,omitempty" json:"trade_signal,omitempty"`

	// Diagnostics for downstream formatters.
	TimedOut    bool          `bson:"timed_out" json:"timed_out"`
	Elapsed     time.Duration `bson:"elapsed" json:"elapsed"`
	GeneratedAt time.Time     `bson:"generated_at" json:"generated_at"`
}

// LowProbabilityInfo explains a low-probability short circuit.
type LowProbabilityInfo struct {
	Threshold      float64 `json:"threshold"`
	MaxProbability float64 `json:"max_probability"`
	MinProbability float64 `json:"min_probability"`
}
