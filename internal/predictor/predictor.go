// Package predictor coordinates the forecasting pipeline: resolve the
// market, classify, fan prompts out to the pool, fuse, normalize, and
// attach a trade signal, all under one overall deadline.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/classify"
	"github.com/leeaandrob/fusecast/internal/fusion"
	"github.com/leeaandrob/fusecast/internal/models"
	"github.com/leeaandrob/fusecast/internal/prompt"
	"github.com/leeaandrob/fusecast/internal/trade"
)

// ErrLowProbability short-circuits the pipeline for long-shot events.
var ErrLowProbability = errors.New("low-probability event")

// LowProbabilityError carries the filter details for the formatter.
type LowProbabilityError struct {
	Info models.LowProbabilityInfo
}

func (e *LowProbabilityError) Error() string {
	return fmt.Sprintf("low-probability event: max %.2f%% below threshold %.2f%%", e.Info.MaxProbability, e.Info.Threshold)
}

func (e *LowProbabilityError) Unwrap() error { return ErrLowProbability }

// Resolver is the gateway surface the coordinator needs.
type Resolver interface {
	Resolve(ctx context.Context, ref models.EventReference) (*models.Event, error)
	CheckLowProbability(ctx context.Context, ev *models.Event) *models.LowProbabilityInfo
}

// Dispatcher is the orchestrator surface the coordinator needs.
type Dispatcher interface {
	DispatchAll(ctx context.Context, prompts map[string]string) map[string]models.ModelResponse
	ModelIDs() []string
}

// ContextProvider enriches an event with auxiliary signals. Providers are
// optional sidecars; a failing provider leaves the event untouched.
type ContextProvider interface {
	Enrich(ctx context.Context, ev *models.Event)
}

// LogSink records finished predictions. Implementations rate-limit their
// own writes.
type LogSink interface {
	Record(ctx context.Context, p *models.Prediction) error
}

// MockFactory builds the substitute event after total resolution failure.
type MockFactory func(ref models.EventReference) *models.Event

// Predictor is the pipeline coordinator.
type Predictor struct {
	resolver   Resolver
	dispatcher Dispatcher
	engine     *fusion.Engine
	evaluator  *trade.Evaluator
	enrichers  []ContextProvider
	sink       LogSink
	mock       MockFactory

	totalTimeout   time.Duration
	outcomeWorkers int
	allowMock      bool
}

// Options configures the coordinator.
type Options struct {
	Resolver       Resolver
	Dispatcher     Dispatcher
	Engine         *fusion.Engine
	Evaluator      *trade.Evaluator
	Enrichers      []ContextProvider
	Sink           LogSink
	Mock           MockFactory
	TotalTimeout   time.Duration
	OutcomeWorkers int
	AllowMock      bool
}

// New creates a predictor.
func New(opts Options) *Predictor {
	if opts.OutcomeWorkers <= 0 {
		opts.OutcomeWorkers = 1
	}
	if opts.TotalTimeout <= 0 {
		opts.TotalTimeout = 120 * time.Second
	}
	return &Predictor{
		resolver:       opts.Resolver,
		dispatcher:     opts.Dispatcher,
		engine:         opts.Engine,
		evaluator:      opts.Evaluator,
		enrichers:      opts.Enrichers,
		sink:           opts.Sink,
		mock:           opts.Mock,
		totalTimeout:   opts.TotalTimeout,
		outcomeWorkers: opts.OutcomeWorkers,
		allowMock:      opts.AllowMock,
	}
}

// Predict runs the full pipeline for one reference. Partial failure never
// raises: missing data lands as nulls in the envelope, with diagnostics.
// The only errors are unresolvable references without mock substitution
// and the low-probability short circuit.
func (p *Predictor) Predict(ctx context.Context, ref models.EventReference, requesterID string) (*models.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.totalTimeout)
	defer cancel()
	start := time.Now()

	ev, err := p.resolver.Resolve(ctx, ref)
	if err != nil {
		if !p.allowMock || p.mock == nil {
			return nil, fmt.Errorf("event resolution failed: %w", err)
		}
		log.Warn().Err(err).Str("reference", ref.Value).Msg("Resolution failed, substituting mock event")
		ev = p.mock(ref)
	}

	if info := p.resolver.CheckLowProbability(ctx, ev); info != nil {
		return nil, &LowProbabilityError{Info: *info}
	}

	for _, enricher := range p.enrichers {
		enricher.Enrich(ctx, ev)
	}

	classification := classify.Classify(ev, p.dispatcher.ModelIDs())
	classification.Apply(ev)

	outcomes := p.fuseOutcomes(ctx, ev, classification)
	norm := p.engine.NormalizeAll(outcomes, ev.FamilyType)

	pred := &models.Prediction{
		RequesterID:   requesterID,
		Event:         *ev,
		Outcomes:      outcomes,
		Normalization: norm,
		TimedOut:      errors.Is(ctx.Err(), context.DeadlineExceeded),
		Elapsed:       time.Since(start),
		GeneratedAt:   time.Now().UTC(),
	}

	if !ev.IsMock {
		pred.TradeSignal = p.pickSignal(ev, outcomes)
	}

	p.record(pred)
	return pred, nil
}

// fuseOutcomes runs compose → dispatch → fuse per outcome, bounded by the
// outcome semaphore. Result order follows the event's outcome order.
func (p *Predictor) fuseOutcomes(ctx context.Context, ev *models.Event, c classify.Classification) []models.FusedOutcome {
	fused := make([]models.FusedOutcome, len(ev.Outcomes))
	sem := make(chan struct{}, p.outcomeWorkers)
	var wg sync.WaitGroup

	for i := range ev.Outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := ev.Outcomes[i]
			prompts := make(map[string]string, len(c.Dimensions))
			for modelID, dim := range c.Dimensions {
				prompts[modelID] = prompt.Compose(prompt.Request{
					Event:   ev,
					Outcome: outcome,
					ModelID: modelID,
					Dim:     dim,
				})
			}

			responses := p.dispatcher.DispatchAll(ctx, prompts)
			fused[i] = p.engine.Fuse(outcome.Name, responses, outcome.MarketProbability, ev.Category)

			log.Info().
				Str("outcome", outcome.Name).
				Int("models", fused[i].ModelCount).
				Msg("Outcome fused")
		}(i)
	}

	wg.Wait()
	return fused
}

// pickSignal evaluates the single outcome, or in multi-outcome events the
// one with the largest absolute EV.
func (p *Predictor) pickSignal(ev *models.Event, outcomes []models.FusedOutcome) *models.TradeSignal {
	days := ev.DaysLeft()

	var best *models.TradeSignal
	for i := range outcomes {
		sig := p.evaluator.Evaluate(&outcomes[i], days)
		if sig == nil {
			continue
		}
		if best == nil || math.Abs(sig.EV) > math.Abs(best.EV) {
			best = sig
		}
	}
	return best
}

// record ships the prediction to the sink on a best-effort basis; logging
// failures never affect the caller.
func (p *Predictor) record(pred *models.Prediction) {
	if p.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.sink.Record(ctx, pred); err != nil {
		log.Warn().Err(err).Msg("Failed to record prediction")
	}
}
