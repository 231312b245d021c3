package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/models"
)

// CheckLowProbability decides whether a resolved event is a long shot not
// worth a full model run. Candidates come from the lead market probability,
// every outcome's probability, and, when nothing else is available, a live
// order-book midpoint. A candidate counts only if it is > 0 and ≤ 100, so
// missing or zeroed data can never trigger the filter. Mock events are
// exempt.
func (g *Gateway) CheckLowProbability(ctx context.Context, ev *models.Event) *models.LowProbabilityInfo {
	if ev == nil || ev.IsMock || g.lowProbFloor <= 0 {
		return nil
	}

	var candidates []float64
	add := func(p *float64) {
		if p != nil && *p > 0 && *p <= 100 {
			candidates = append(candidates, *p)
		}
	}

	add(ev.MarketProbability())
	for i := range ev.Outcomes {
		add(ev.Outcomes[i].MarketProbability)
	}

	if len(candidates) == 0 {
		// Order book as last resort, only for a known token.
		for i := range ev.Outcomes {
			if ev.Outcomes[i].TokenID == "" {
				continue
			}
			mid, err := g.api.GetMidpoint(ctx, ev.Outcomes[i].TokenID)
			if err != nil {
				log.Debug().Err(err).
					Str("token", ev.Outcomes[i].TokenID).
					Msg("Order book midpoint unavailable")
				continue
			}
			p := mid * 100
			add(&p)
			break
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	max, min := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c > max {
			max = c
		}
		if c < min {
			min = c
		}
	}

	if max >= g.lowProbFloor {
		return nil
	}

	log.Info().
		Str("slug", ev.MarketSlug).
		Float64("max_probability", max).
		Float64("threshold", g.lowProbFloor).
		Msg("Low-probability event filtered")

	return &models.LowProbabilityInfo{
		Threshold:      g.lowProbFloor,
		MaxProbability: max,
		MinProbability: min,
	}
}
