package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeaandrob/fusecast/internal/config"
)

// fakeClient scripts per-model outputs. A model mapped to an error fails;
// a model missing from both maps blocks until the context is cancelled.
type fakeClient struct {
	outputs map[string]string
	fails   map[string]error
}

func (f *fakeClient) Invoke(ctx context.Context, model, prompt string) (string, error) {
	if err, ok := f.fails[model]; ok {
		return "", err
	}
	if out, ok := f.outputs[model]; ok {
		return out, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func goodJSON(prob float64) string {
	return fmt.Sprintf(`{"probability": %v, "confidence": "medium", "reasoning": "test"}`, prob)
}

func poolOf(ids ...string) []config.ModelConfig {
	out := make([]config.ModelConfig, len(ids))
	for i, id := range ids {
		out[i] = config.ModelConfig{ID: id, DisplayName: id, BaseWeight: 1.0, Enabled: true}
	}
	return out
}

func promptsFor(ids ...string) map[string]string {
	prompts := make(map[string]string, len(ids))
	for _, id := range ids {
		prompts[id] = "prompt"
	}
	return prompts
}

func TestRegistryWeights(t *testing.T) {
	pool := []config.ModelConfig{
		{ID: "a", BaseWeight: 1.5, Enabled: true, Fallback: "a-mini"},
		{ID: "b", BaseWeight: 2.0, Enabled: false},
	}
	r := NewRegistry(pool, "lmarena")

	assert.Equal(t, []string{"a"}, r.ModelIDs())
	assert.InDelta(t, 1.5, r.GetWeight("a"), 1e-9)
	assert.InDelta(t, 2.0, r.GetWeight("b"), 1e-9)
	// Fallback inherits 90% of the primary weight.
	assert.InDelta(t, 1.35, r.GetWeight("a-mini"), 1e-9)
	// Unknown models stay weighable.
	assert.InDelta(t, 1.0, r.GetWeight("mystery"), 1e-9)
	assert.Equal(t, "lmarena", r.WeightSource())
}

func TestRegistryTimeoutOverride(t *testing.T) {
	r := NewRegistry(nil, "config")
	def := 15 * time.Second
	assert.Equal(t, def, r.TimeoutFor(config.ModelConfig{ID: "x"}, def))
	assert.Equal(t, 45*time.Second, r.TimeoutFor(config.ModelConfig{ID: "x", TimeoutSec: 45}, def))
}

func TestDispatchAllSuccess(t *testing.T) {
	client := &fakeClient{outputs: map[string]string{
		"a": goodJSON(70),
		"b": goodJSON(72),
		"c": goodJSON(68),
	}}
	o := New(NewRegistry(poolOf("a", "b", "c"), "config"), client, 2*time.Second, 5)

	results := o.DispatchAll(context.Background(), promptsFor("a", "b", "c"))
	require.Len(t, results, 3)
	for id, resp := range results {
		assert.True(t, resp.Valid(), id)
	}
	a := results["a"]
	assert.InDelta(t, 70, a.Probability, 1e-9)
	assert.Equal(t, "a", a.Model)
}

func TestDispatchAllPartialFailure(t *testing.T) {
	client := &fakeClient{
		outputs: map[string]string{"a": goodJSON(80)},
		fails:   map[string]error{"b": errors.New("upstream 500")},
	}
	// Short budgets so the retry ladder cannot fit its backoff.
	o := New(NewRegistry(poolOf("a", "b"), "config"), client, 200*time.Millisecond, 5)

	results := o.DispatchAll(context.Background(), promptsFor("a", "b"))
	require.Len(t, results, 2)

	a := results["a"]
	assert.True(t, a.Valid())
	b := results["b"]
	assert.False(t, b.Valid())
	assert.Contains(t, b.Error, "upstream 500")
}

func TestDispatchAllUsesFallbackModel(t *testing.T) {
	client := &fakeClient{
		outputs: map[string]string{"a-mini": goodJSON(44)},
		fails:   map[string]error{"a": errors.New("overloaded")},
	}
	pool := []config.ModelConfig{
		{ID: "a", DisplayName: "A", BaseWeight: 1.0, Enabled: true, Fallback: "a-mini"},
	}
	o := New(NewRegistry(pool, "config"), client, 200*time.Millisecond, 5)

	results := o.DispatchAll(context.Background(), promptsFor("a"))
	resp := results["a"]
	require.True(t, resp.Valid(), resp.Error)
	assert.Equal(t, "a-mini", resp.Model)
	assert.InDelta(t, 44, resp.Probability, 1e-9)
}

func TestDispatchAllBoundedByBatchDeadline(t *testing.T) {
	// "slow" never answers; the batch deadline must cut it off.
	client := &fakeClient{outputs: map[string]string{"a": goodJSON(60)}}
	o := New(NewRegistry(poolOf("a", "slow"), "config"), client, 150*time.Millisecond, 5)

	start := time.Now()
	results := o.DispatchAll(context.Background(), promptsFor("a", "slow"))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	a := results["a"]
	assert.True(t, a.Valid())
	slow := results["slow"]
	assert.False(t, slow.Valid())
}

func TestDispatchAllSkipsModelsWithoutPrompt(t *testing.T) {
	client := &fakeClient{outputs: map[string]string{"a": goodJSON(50)}}
	o := New(NewRegistry(poolOf("a", "b"), "config"), client, time.Second, 5)

	results := o.DispatchAll(context.Background(), promptsFor("a"))
	require.Len(t, results, 1)
	_, ok := results["b"]
	assert.False(t, ok)
}

func TestAssistantChain(t *testing.T) {
	t.Run("first success wins", func(t *testing.T) {
		var asked []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req chainRequest
			_ = jsonDecode(r, &req)
			asked = append(asked, req.Model)
			if req.Model == "primary" {
				http.Error(w, "down", http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"choices":[{"message":{"content":"summary text"}}]}`)
		}))
		defer srv.Close()

		chain := NewAssistantChain(srv.URL, "key", []string{"primary", "secondary", "tertiary"})
		res := chain.Ask(context.Background(), "summarize")

		assert.Equal(t, "secondary", res.Source)
		assert.Equal(t, "summary text", res.Text)
		assert.Equal(t, []string{"primary", "secondary"}, asked)
	})

	t.Run("exhausted chain emits sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		chain := NewAssistantChain(srv.URL, "key", []string{"primary", "secondary"})
		res := chain.Ask(context.Background(), "summarize")

		assert.Equal(t, FallbackDefaultSource, res.Source)
		assert.NotEmpty(t, res.Text)
	})
}

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
