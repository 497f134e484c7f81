package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adspend-cli/internal/model"
)

func TestScore_AlwaysInRange(t *testing.T) {
	ts := DefaultThresholds()

	roasValues := []*float64{nil, f64(-2), f64(0), f64(0.5), f64(2.5), f64(10), f64(1000)}
	cpaValues := []*float64{nil, f64(0), f64(25), f64(120), f64(500)}
	lostIS := []*float64{nil, f64(0), f64(55), f64(100), f64(250)}
	flROAS := []*float64{nil, f64(-1), f64(1.2), f64(5)}

	for _, st := range model.AllStrategyTypes() {
		th := ts.For(st)
		for _, roas := range roasValues {
			for _, cpa := range cpaValues {
				for _, lis := range lostIS {
					for _, fl := range flROAS {
						m := model.CampaignMetrics{
							TrueROAS:          roas,
							CPA:               cpa,
							LostImpressionPct: lis,
							FullyLoadedROAS:   fl,
						}
						got := Score(m, th)
						require.GreaterOrEqual(t, got, 0)
						require.LessOrEqual(t, got, 100)
					}
				}
			}
		}
	}
}

func TestScore_MissingInputsAreNeutral(t *testing.T) {
	th := DefaultThresholds().For(model.StrategyUnknown)

	// Everything missing: roas 0, efficiency 50, volume 50, IS 50, margin 0.
	// Weighted: (0*30 + 50*20 + 50*15 + 50*15 + 0*20) / 100 = 25.
	got := Score(model.CampaignMetrics{}, th)
	assert.Equal(t, 25, got)
}

func TestScore_MarginFallsBackToTrueROAS(t *testing.T) {
	th := DefaultThresholds().For(model.StrategyHighConsideration)

	withFL := Score(model.CampaignMetrics{
		TrueROAS:        f64(2.5),
		FullyLoadedROAS: f64(2.5),
	}, th)
	withoutFL := Score(model.CampaignMetrics{
		TrueROAS: f64(2.5),
	}, th)

	// 2.5 fully-loaded caps margin at 100; the true-ROAS fallback scores
	// 2.5*30 = 75, so dropping the fully-loaded figure must cost points.
	assert.Greater(t, withFL, withoutFL)
}

func TestScore_ImpressionShareInverts(t *testing.T) {
	th := DefaultThresholds().For(model.StrategyBrandDefense)

	lowLost := Score(model.CampaignMetrics{TrueROAS: f64(1.5), LostImpressionPct: f64(5)}, th)
	highLost := Score(model.CampaignMetrics{TrueROAS: f64(1.5), LostImpressionPct: f64(80)}, th)
	assert.Greater(t, lowLost, highLost)
}

func TestScore_StrongCampaignScoresHigh(t *testing.T) {
	th := DefaultThresholds().For(model.StrategyHighConsideration)

	got := Score(model.CampaignMetrics{
		TrueROAS:          f64(5.0),
		CPA:               f64(40),
		LostImpressionPct: f64(10),
		FullyLoadedROAS:   f64(3.0),
	}, th)
	assert.GreaterOrEqual(t, got, 85)
}
