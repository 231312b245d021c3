// Package fusion aggregates model responses into calibrated outcome
// probabilities and enforces the cross-outcome invariants.
package fusion

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/models"
)

// noModelsSummary is emitted when no valid response survived filtering.
const noModelsSummary = "no model predictions available"

// WeightProvider supplies base weights per model. The orchestrator's
// registry implements it; fusion stays independent of dispatch.
type WeightProvider interface {
	GetWeight(modelID string) float64
	WeightSource() string
}

// Engine fuses per-outcome responses and normalizes across outcomes.
type Engine struct {
	weights           WeightProvider
	alpha             float64
	confidenceFactors map[string]float64
	calibrators       CalibratorSet
}

// NewEngine builds a fusion engine. alpha is the model share of the
// market blend; confidenceFactors scale base weights by the model's
// self-reported confidence.
func NewEngine(weights WeightProvider, alpha float64, confidenceFactors map[string]float64, calibrators CalibratorSet) *Engine {
	return &Engine{
		weights:           weights,
		alpha:             alpha,
		confidenceFactors: confidenceFactors,
		calibrators:       calibrators,
	}
}

func (e *Engine) confidenceFactor(c models.Confidence) float64 {
	if f, ok := e.confidenceFactors[string(c)]; ok && f > 0 {
		return f
	}
	return 1.0
}

// Fuse folds the model responses for one outcome into a FusedOutcome.
// Order of the response map never matters: the weighted mean is
// commutative and the summary picks by (confidence, weight, model ID).
func (e *Engine) Fuse(outcomeName string, responses map[string]models.ModelResponse, marketProb *float64, category string) models.FusedOutcome {
	fused := models.FusedOutcome{
		Name:              outcomeName,
		MarketProbability: copyFloat(marketProb),
		WeightSource:      e.weights.WeightSource(),
		Responses:         flatten(responses),
	}

	valid := make([]models.ModelResponse, 0, len(responses))
	for _, r := range responses {
		r := r
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	fused.ModelCount = len(valid)

	if len(valid) == 0 {
		fused.BlendedProb = copyFloat(marketProb)
		fused.Summary = noModelsSummary
		return fused
	}

	// Weighted mean with compensated accumulation.
	var wSum, wpSum compSum
	weights := make([]float64, len(valid))
	for i, r := range valid {
		w := e.weights.GetWeight(r.Model) * e.confidenceFactor(r.Confidence)
		weights[i] = w
		wSum.add(w)
		wpSum.add(w * r.Probability)
	}
	mean := clamp(wpSum.value()/wSum.value(), 0, 100)

	var varSum compSum
	for i, r := range valid {
		d := r.Probability - mean
		varSum.add(weights[i] * d * d)
	}
	fused.Uncertainty = math.Sqrt(varSum.value() / wSum.value())
	fused.Disagreement = clamp(fused.Uncertainty/50, 0, 1)

	// Calibrate before blending so the market share is not distorted.
	calibrator, applied := e.calibrators.For(category)
	mean = clamp(calibrator(mean), 0, 100)
	fused.CalibrationApplied = applied
	fused.ModelOnlyProb = models.Float(mean)

	if marketProb != nil && !math.IsNaN(*marketProb) && !math.IsInf(*marketProb, 0) {
		fused.BlendedProb = models.Float(clamp(e.alpha*mean+(1-e.alpha)**marketProb, 0, 100))
	} else {
		fused.BlendedProb = models.Float(mean)
	}

	fused.Summary = e.buildSummary(valid, weights)
	return fused
}

// buildSummary leads with the highest-confidence insight and appends the
// runner-up only when it actually says something different.
func (e *Engine) buildSummary(valid []models.ModelResponse, weights []float64) string {
	type ranked struct {
		resp   models.ModelResponse
		weight float64
	}
	entries := make([]ranked, 0, len(valid))
	for i, r := range valid {
		if r.Reasoning == "" {
			continue
		}
		entries = append(entries, ranked{resp: r, weight: weights[i]})
	}
	if len(entries) == 0 {
		return ""
	}

	sort.Slice(entries, func(i, j int) bool {
		ci, cj := confidenceRank(entries[i].resp.Confidence), confidenceRank(entries[j].resp.Confidence)
		if ci != cj {
			return ci > cj
		}
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].resp.Model < entries[j].resp.Model
	})

	primary := entries[0].resp.Reasoning
	for _, entry := range entries[1:] {
		if tokenSimilarity(primary, entry.resp.Reasoning) < similarityThreshold {
			return primary + " " + entry.resp.Reasoning
		}
	}
	return primary
}

func confidenceRank(c models.Confidence) int {
	switch c {
	case models.ConfidenceHigh:
		return 2
	case models.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// NormalizeAll rescales mutually-exclusive outcome sets so their
// model-only probabilities sum to 100. Conditional, hybrid, and binary
// families are left untouched: their outcomes can resolve independently,
// so a sum above 100 is legitimate.
func (e *Engine) NormalizeAll(outcomes []models.FusedOutcome, family models.FamilyType) models.NormalizationInfo {
	info := models.NormalizationInfo{FamilyType: family}

	probs := make([]*float64, len(outcomes))
	for i := range outcomes {
		probs[i] = outcomes[i].ModelOnlyProb
		if outcomes[i].ModelOnlyProb == nil {
			info.SkippedOutcomes = append(info.SkippedOutcomes, i)
		}
	}
	total, nonNull := safeSum(probs)
	info.TotalBefore = total

	if family != models.FamilyMutuallyExclusive {
		log.Info().
			Str("family", string(family)).
			Float64("total", total).
			Msg("conditional event detected — normalization skipped")
		return info
	}

	if nonNull == 0 {
		return info
	}
	if total == 0 {
		log.Warn().
			Str("family", string(family)).
			Msg("zero probability mass, normalization skipped")
		return info
	}

	scale := 100 / total
	for i := range outcomes {
		if outcomes[i].ModelOnlyProb == nil {
			continue
		}
		scaled := clamp(*outcomes[i].ModelOnlyProb*scale, 0, 100)
		outcomes[i].ModelOnlyProb = models.Float(scaled)
		outcomes[i].Normalized = true
		if outcomes[i].BlendedProb != nil {
			reblended := clamp(*outcomes[i].BlendedProb*scale, 0, 100)
			outcomes[i].BlendedProb = models.Float(reblended)
		}
	}

	info.Normalized = true
	info.TotalAfter = models.Float(100)
	info.Reason = "type"
	// A consensus total far from 100 means the pool sharply disagrees
	// with itself across the field; flag it for the report.
	if total < 90 || total > 110 {
		info.Reason = "sum_guard"
		log.Warn().
			Float64("total", total).
			Msg("outcome probabilities far from 100, normalization forced")
	}
	return info
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}

func flatten(responses map[string]models.ModelResponse) []models.ModelResponse {
	out := make([]models.ModelResponse, 0, len(responses))
	for _, r := range responses {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}
