package strategy

import (
	"math"

	"github.com/sells-group/adspend-cli/internal/model"
)

// neutralComponent is the score contributed by a component with no data.
const neutralComponent = 50.0

// Score computes the 0-100 composite decision score for a campaign under the
// given archetype thresholds. Missing measurements contribute the neutral 50,
// never an error.
func Score(m model.CampaignMetrics, th Thresholds) int {
	roas := 0.0
	if m.TrueROAS != nil {
		roas = *m.TrueROAS
	}

	// ROAS vs threshold: hitting the "good" benchmark is worth 100.
	var roasScore float64
	if th.ROASGood > 0 {
		roasScore = math.Min(100, roas/th.ROASGood*100)
	}

	// Efficiency: CPA at the ceiling scores 50, at zero scores 100, at twice
	// the ceiling scores 0.
	efficiency := neutralComponent
	if m.CPA != nil && th.CPACeiling > 0 {
		efficiency = clamp100((1 - *m.CPA/(2*th.CPACeiling)) * 100)
	}

	// Volume trend: week-over-week conversion growth is not available at
	// process time, so this component is a fixed neutral placeholder.
	volumeTrend := neutralComponent

	// Impression share: low lost share means high won share.
	impressionShare := neutralComponent
	if m.LostImpressionPct != nil {
		impressionShare = clamp100(100 - *m.LostImpressionPct)
	}

	// Margin health: fully-loaded ROAS of 2.5x scores 100; falls back to a
	// steeper true-ROAS scale when overhead allocation is unavailable.
	var marginHealth float64
	switch {
	case m.FullyLoadedROAS != nil:
		marginHealth = clamp100(*m.FullyLoadedROAS * 40)
	case roas > 0:
		marginHealth = clamp100(roas * 30)
	}

	w := th.Weights
	totalWeight := w.ROASVsThreshold + w.Efficiency + w.VolumeTrend + w.ImpressionShare + w.MarginHealth
	if totalWeight == 0 {
		return 0
	}

	weighted := roasScore*w.ROASVsThreshold +
		efficiency*w.Efficiency +
		volumeTrend*w.VolumeTrend +
		impressionShare*w.ImpressionShare +
		marginHealth*w.MarginHealth

	final := int(math.Round(weighted / totalWeight))
	if final < 0 {
		return 0
	}
	if final > 100 {
		return 100
	}
	return final
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
