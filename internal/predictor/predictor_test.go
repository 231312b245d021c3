package predictor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeaandrob/fusecast/internal/config"
	"github.com/leeaandrob/fusecast/internal/fusion"
	"github.com/leeaandrob/fusecast/internal/gateway"
	"github.com/leeaandrob/fusecast/internal/models"
	"github.com/leeaandrob/fusecast/internal/trade"
)

type fakeResolver struct {
	event   *models.Event
	err     error
	lowProb *models.LowProbabilityInfo
}

func (f *fakeResolver) Resolve(ctx context.Context, ref models.EventReference) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	ev := *f.event
	return &ev, nil
}

func (f *fakeResolver) CheckLowProbability(ctx context.Context, ev *models.Event) *models.LowProbabilityInfo {
	if ev.IsMock {
		return nil
	}
	return f.lowProb
}

// fakeDispatcher answers every prompt with the scripted per-model probability.
type fakeDispatcher struct {
	ids   []string
	probs map[string]float64
	fail  bool
}

func (f *fakeDispatcher) ModelIDs() []string { return f.ids }

func (f *fakeDispatcher) DispatchAll(ctx context.Context, prompts map[string]string) map[string]models.ModelResponse {
	out := make(map[string]models.ModelResponse, len(prompts))
	for id := range prompts {
		if f.fail {
			out[id] = models.ModelResponse{Model: id, Error: "upstream down"}
			continue
		}
		out[id] = models.ModelResponse{
			Model:       id,
			Probability: f.probs[id],
			Confidence:  models.ConfidenceMedium,
			Reasoning:   "scripted answer from " + id,
		}
	}
	return out
}

type fakeSink struct {
	recorded []*models.Prediction
}

func (f *fakeSink) Record(ctx context.Context, p *models.Prediction) error {
	f.recorded = append(f.recorded, p)
	return nil
}

type unitWeights struct{}

func (unitWeights) GetWeight(string) float64 { return 1.0 }
func (unitWeights) WeightSource() string     { return "config" }

func binaryEvent() *models.Event {
	return &models.Event{
		Question:         "Will X happen by December?",
		DaysToResolution: models.Float(30),
		Outcomes: []models.Outcome{
			{Name: "Yes", Active: true, MarketProbability: models.Float(50)},
		},
	}
}

func newPredictor(r Resolver, d Dispatcher, sink LogSink, allowMock bool) *Predictor {
	engine := fusion.NewEngine(unitWeights{}, 0.8, map[string]float64{"low": 0.5, "medium": 1.0, "high": 1.5}, nil)
	eval := trade.NewEvaluator(config.TradeParams{EVBuyThreshold: 2, EVSellThreshold: 2, RiskThreshold: 0.6, RiskCeiling: 0.9})
	return New(Options{
		Resolver:       r,
		Dispatcher:     d,
		Engine:         engine,
		Evaluator:      eval,
		Sink:           sink,
		Mock:           gateway.MockEvent,
		TotalTimeout:   10 * time.Second,
		OutcomeWorkers: 3,
		AllowMock:      allowMock,
	})
}

func TestPredictBinaryBuySignal(t *testing.T) {
	dispatcher := &fakeDispatcher{
		ids:   []string{"a", "b", "c"},
		probs: map[string]float64{"a": 70, "b": 72, "c": 68},
	}
	sink := &fakeSink{}
	p := newPredictor(&fakeResolver{event: binaryEvent()}, dispatcher, sink, false)

	pred, err := p.Predict(context.Background(), models.EventReference{Kind: models.RefSlug, Value: "x-by-december"}, "user-1")
	require.NoError(t, err)

	require.Len(t, pred.Outcomes, 1)
	out := pred.Outcomes[0]
	require.NotNil(t, out.ModelOnlyProb)
	assert.InDelta(t, 70, *out.ModelOnlyProb, 0.1)
	require.NotNil(t, out.BlendedProb)
	assert.InDelta(t, 66, *out.BlendedProb, 0.1)

	require.NotNil(t, pred.TradeSignal)
	assert.Equal(t, models.SignalBuy, pred.TradeSignal.Signal)
	assert.InDelta(t, 20, pred.TradeSignal.EV, 0.1)

	assert.Equal(t, models.FamilyBinary, pred.Event.FamilyType)
	assert.False(t, pred.Normalization.Normalized)
	assert.False(t, pred.TimedOut)
	assert.Equal(t, "user-1", pred.RequesterID)

	require.Len(t, sink.recorded, 1)
}

func TestPredictMutuallyExclusiveNormalizes(t *testing.T) {
	ev := &models.Event{
		Question: "Who will win the nomination?",
		Outcomes: []models.Outcome{
			{Name: "Candidate Alpha", Active: true, MarketProbability: models.Float(45)},
			{Name: "Candidate Beta", Active: true, MarketProbability: models.Float(30)},
			{Name: "Candidate Gamma", Active: true, MarketProbability: models.Float(25)},
		},
	}
	// One scripted probability per model; every outcome gets the same
	// pool answer, so each fuses to 35 and the set sums to 105.
	dispatcher := &fakeDispatcher{
		ids:   []string{"a", "b"},
		probs: map[string]float64{"a": 30, "b": 40},
	}
	p := newPredictor(&fakeResolver{event: ev}, dispatcher, nil, false)

	pred, err := p.Predict(context.Background(), models.EventReference{Kind: models.RefSlug, Value: "nomination"}, "")
	require.NoError(t, err)

	assert.Equal(t, models.FamilyMutuallyExclusive, pred.Event.FamilyType)
	assert.True(t, pred.Normalization.Normalized)

	sum := 0.0
	for _, o := range pred.Outcomes {
		require.NotNil(t, o.ModelOnlyProb)
		sum += *o.ModelOnlyProb
	}
	assert.InDelta(t, 100, sum, 0.01)

	// Order preserved from the gateway.
	assert.Equal(t, "Candidate Alpha", pred.Outcomes[0].Name)
	assert.Equal(t, "Candidate Gamma", pred.Outcomes[2].Name)
}

func TestPredictAllModelsFail(t *testing.T) {
	dispatcher := &fakeDispatcher{ids: []string{"a", "b"}, fail: true}
	p := newPredictor(&fakeResolver{event: binaryEvent()}, dispatcher, nil, false)

	pred, err := p.Predict(context.Background(), models.EventReference{Kind: models.RefSlug, Value: "x-y"}, "")
	require.NoError(t, err)

	out := pred.Outcomes[0]
	assert.Nil(t, out.ModelOnlyProb)
	require.NotNil(t, out.BlendedProb)
	assert.InDelta(t, 50, *out.BlendedProb, 1e-9)
	assert.Equal(t, 0, out.ModelCount)
	assert.Nil(t, pred.TradeSignal)
}

func TestPredictMockSubstitution(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("wrapped: %w", gateway.ErrAllSourcesFailed)}
	dispatcher := &fakeDispatcher{ids: []string{"a"}, probs: map[string]float64{"a": 60}}

	t.Run("mock allowed", func(t *testing.T) {
		p := newPredictor(resolver, dispatcher, nil, true)
		pred, err := p.Predict(context.Background(), models.EventReference{Kind: models.RefSlug, Value: "gone-market"}, "")
		require.NoError(t, err)
		assert.True(t, pred.Event.IsMock)
		// Mock events never carry a trade signal.
		assert.Nil(t, pred.TradeSignal)
		require.Len(t, pred.Outcomes, 1)
		require.NotNil(t, pred.Outcomes[0].ModelOnlyProb)
	})

	t.Run("mock disallowed", func(t *testing.T) {
		p := newPredictor(resolver, dispatcher, nil, false)
		_, err := p.Predict(context.Background(), models.EventReference{Kind: models.RefSlug, Value: "gone-market"}, "")
		assert.ErrorIs(t, err, gateway.ErrAllSourcesFailed)
	})
}

func TestPredictLowProbabilityShortCircuit(t *testing.T) {
	resolver := &fakeResolver{
		event:   binaryEvent(),
		lowProb: &models.LowProbabilityInfo{Threshold: 1.0, MaxProbability: 0.4, MinProbability: 0.4},
	}
	p := newPredictor(resolver, &fakeDispatcher{ids: []string{"a"}}, nil, false)

	_, err := p.Predict(context.Background(), models.EventReference{Kind: models.RefSlug, Value: "long-shot"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLowProbability)

	var lpe *LowProbabilityError
	require.True(t, errors.As(err, &lpe))
	assert.InDelta(t, 0.4, lpe.Info.MaxProbability, 1e-9)
}
