package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/config"
	"github.com/leeaandrob/fusecast/internal/llm"
	"github.com/leeaandrob/fusecast/internal/models"
)

const maxRetries = 2

// Orchestrator fans prompts out across the enabled pool.
type Orchestrator struct {
	registry      *Registry
	client        llm.ModelClient
	defaultCall   time.Duration
	maxConcurrent int
}

// New creates an orchestrator. maxConcurrent bounds in-flight model calls.
func New(registry *Registry, client llm.ModelClient, defaultCall time.Duration, maxConcurrent int) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		registry:      registry,
		client:        client,
		defaultCall:   defaultCall,
		maxConcurrent: maxConcurrent,
	}
}

// Registry exposes the read-only pool, mainly so the fusion engine can read
// weights without depending on dispatch.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// ModelIDs lists the enabled pool, in configuration order.
func (o *Orchestrator) ModelIDs() []string {
	return o.registry.ModelIDs()
}

// DispatchAll sends each model its prompt in parallel and collects one
// response slot per model. It never returns an error: failed models carry
// their failure in the Error field and the fusion engine works with what
// arrived. The batch is bounded by twice the default call budget (or the
// remaining deadline, whichever is shorter); stragglers are cancelled and
// their slots marked invalid.
func (o *Orchestrator) DispatchAll(ctx context.Context, prompts map[string]string) map[string]models.ModelResponse {
	batch := 2 * o.defaultCall
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < batch {
			batch = remaining
		}
	}
	ctx, cancel := context.WithTimeout(ctx, batch)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]models.ModelResponse, len(prompts))
	)
	sem := make(chan struct{}, o.maxConcurrent)

	for _, m := range o.registry.Models() {
		prompt, ok := prompts[m.ID]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(m config.ModelConfig, prompt string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				results[m.ID] = models.ModelResponse{
					Model:       m.ID,
					DisplayName: m.DisplayName,
					Error:       "batch deadline exceeded before dispatch",
				}
				mu.Unlock()
				return
			}

			resp := o.callWithRetry(ctx, m, prompt)
			mu.Lock()
			results[m.ID] = resp
			mu.Unlock()
		}(m, prompt)
	}

	wg.Wait()
	return results
}

// callWithRetry runs the attempt ladder for one model: up to two retries
// with 1 s / 2 s backoff, then a single shot at the configured fallback
// model at its discounted weight. Every attempt honors both the per-model
// budget and the enclosing deadline; a retry that cannot fit is skipped.
func (o *Orchestrator) callWithRetry(ctx context.Context, m config.ModelConfig, prompt string) models.ModelResponse {
	callBudget := o.registry.TimeoutFor(m, o.defaultCall)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			if !sleepWithin(ctx, backoff) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		resp, err := o.callOnce(ctx, m.ID, m.DisplayName, prompt, callBudget)
		if err == nil {
			return resp
		}
		lastErr = err
		log.Warn().
			Str("model", m.ID).
			Int("attempt", attempt+1).
			Err(err).
			Msg("Model call failed")
	}

	if m.Fallback != "" && ctx.Err() == nil {
		log.Info().
			Str("model", m.ID).
			Str("fallback", m.Fallback).
			Msg("Trying fallback model")
		if resp, err := o.callOnce(ctx, m.Fallback, m.DisplayName, prompt, callBudget); err == nil {
			return resp
		} else {
			lastErr = fmt.Errorf("fallback %s: %w", m.Fallback, err)
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return models.ModelResponse{
		Model:       m.ID,
		DisplayName: m.DisplayName,
		Error:       errString(lastErr),
	}
}

// callOnce performs one bounded invoke-and-parse cycle.
func (o *Orchestrator) callOnce(ctx context.Context, modelID, displayName, prompt string, budget time.Duration) (models.ModelResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	raw, err := o.client.Invoke(callCtx, modelID, prompt)
	latency := time.Since(start)
	if err != nil {
		return models.ModelResponse{}, err
	}

	prob, confidence, reasoning, err := parseModelOutput(raw)
	if err != nil {
		return models.ModelResponse{}, err
	}

	return models.ModelResponse{
		Model:       modelID,
		DisplayName: displayName,
		Probability: prob,
		Confidence:  confidence,
		Reasoning:   reasoning,
		Latency:     latency,
	}, nil
}

// sleepWithin waits for d unless the context ends first.
func sleepWithin(ctx context.Context, d time.Duration) bool {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown failure"
	}
	return err.Error()
}
