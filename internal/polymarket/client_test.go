package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStringArrayUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain array", `["Yes","No"]`, []string{"Yes", "No"}},
		{"encoded string", `"[\"Yes\",\"No\"]"`, []string{"Yes", "No"}},
		{"empty string", `""`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var arr JSONStringArray
			require.NoError(t, json.Unmarshal([]byte(tt.input), &arr))
			assert.Equal(t, JSONStringArray(tt.want), arr)
		})
	}
}

func TestMarketLeadPrice(t *testing.T) {
	m := Market{OutcomePrices: JSONStringArray{"0.65", "0.35"}}
	p := m.LeadPrice()
	require.NotNil(t, p)
	assert.InDelta(t, 0.65, *p, 1e-9)

	assert.Nil(t, (&Market{}).LeadPrice())
	assert.Nil(t, (&Market{OutcomePrices: JSONStringArray{"0"}}).LeadPrice())
	assert.Nil(t, (&Market{OutcomePrices: JSONStringArray{"1"}}).LeadPrice())
	assert.Nil(t, (&Market{OutcomePrices: JSONStringArray{"nope"}}).LeadPrice())
}

func TestMarketEndTime(t *testing.T) {
	m := Market{EndDate: "2026-11-03T12:00:00Z"}
	et := m.EndTime()
	require.NotNil(t, et)
	assert.Equal(t, 2026, et.Year())

	assert.NotNil(t, (&Market{EndDate: "2026-11-03"}).EndTime())
	assert.Nil(t, (&Market{}).EndTime())
	assert.Nil(t, (&Market{EndDate: "soon"}).EndTime())
}

func TestParseEventBlob(t *testing.T) {
	blob := `{
		"props": {"pageProps": {"dehydratedState": {"queries": [
			{"state": {"data": {"irrelevant": true}}},
			{"state": {"data": {
				"slug": "next-president",
				"title": "Who will win?",
				"markets": [{"id": "1", "question": "Candidate A?", "outcomePrices": "[\"0.4\",\"0.6\"]"}]
			}}}
		]}}}
	}`

	ev, err := parseEventBlob(blob, "next-president")
	require.NoError(t, err)
	assert.Equal(t, "Who will win?", ev.Title)
	require.Len(t, ev.Markets, 1)
	assert.Equal(t, JSONStringArray{"0.4", "0.6"}, ev.Markets[0].OutcomePrices)

	_, err = parseEventBlob(blob, "missing-slug")
	assert.Error(t, err)

	_, err = parseEventBlob("{not json", "x")
	assert.Error(t, err)
}
