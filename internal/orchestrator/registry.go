// Package orchestrator dispatches prompts across the model pool and turns
// raw completions into structured responses. It owns the model registry,
// per-call deadlines, retries, and the assistant fallback chain.
package orchestrator

import (
	"time"

	"github.com/leeaandrob/fusecast/internal/config"
)

// fallbackWeightRatio discounts a fallback model relative to its primary.
const fallbackWeightRatio = 0.9

// Registry is the read-only model pool, loaded once at startup. The fusion
// engine reads weights through it; nothing mutates it after construction.
type Registry struct {
	entries []config.ModelConfig
	weights map[string]float64
	source  string
}

// NewRegistry builds the registry from configuration. Disabled models are
// kept out of dispatch but their fallbacks still get a weight entry at the
// discounted ratio so responses produced through a fallback stay weighable.
func NewRegistry(models []config.ModelConfig, weightSource string) *Registry {
	weights := make(map[string]float64, len(models)*2)
	enabled := make([]config.ModelConfig, 0, len(models))

	for _, m := range models {
		weights[m.ID] = m.BaseWeight
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	for _, m := range models {
		if m.Fallback == "" {
			continue
		}
		if _, isPrimary := weights[m.Fallback]; !isPrimary {
			weights[m.Fallback] = m.BaseWeight * fallbackWeightRatio
		}
	}

	return &Registry{entries: enabled, weights: weights, source: weightSource}
}

// Models returns the enabled pool in configuration order.
func (r *Registry) Models() []config.ModelConfig {
	return r.entries
}

// ModelIDs returns the enabled model identifiers.
func (r *Registry) ModelIDs() []string {
	ids := make([]string, len(r.entries))
	for i, m := range r.entries {
		ids[i] = m.ID
	}
	return ids
}

// GetWeight returns the base weight for a model, 1.0 for unknown IDs so a
// stray response never zeroes out of the ensemble.
func (r *Registry) GetWeight(modelID string) float64 {
	if w, ok := r.weights[modelID]; ok && w > 0 {
		return w
	}
	return 1.0
}

// WeightSource labels where the weights came from, recorded for audit.
func (r *Registry) WeightSource() string {
	return r.source
}

// TimeoutFor returns the per-model call budget: the model's own override
// when configured, otherwise the pool default.
func (r *Registry) TimeoutFor(m config.ModelConfig, def time.Duration) time.Duration {
	if m.TimeoutSec > 0 {
		return time.Duration(m.TimeoutSec) * time.Second
	}
	return def
}
