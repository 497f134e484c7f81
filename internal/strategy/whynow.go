package strategy

import (
	"fmt"

	"github.com/sells-group/adspend-cli/internal/model"
)

// WhyNow renders the canned per-archetype explanation for an action. The text
// is diagnostic only: it names the ROAS position relative to the archetype
// benchmarks and the decision score, never a budget amount or spend target.
func WhyNow(action model.Action, trueROAS *float64, th Thresholds, score int) string {
	roas := 0.0
	if trueROAS != nil {
		roas = *trueROAS
	}

	switch action {
	case model.ActionScaleAggressively:
		return fmt.Sprintf(
			"ROAS %.1fx exceeds %s target (%gx) with %d/100 decision score. Strong candidate for expansion.",
			roas, th.Label, th.ROASGood, score)
	case model.ActionScale:
		return fmt.Sprintf(
			"ROAS %.1fx above %s good (%gx). Decision score %d/100. Room to grow.",
			roas, th.Label, th.ROASGood, score)
	case model.ActionMaintain:
		return fmt.Sprintf(
			"ROAS %.1fx near %s target. Decision score %d/100. Hold steady.",
			roas, th.Label, score)
	case model.ActionOptimize:
		return fmt.Sprintf(
			"ROAS %.1fx below %s target (%gx). Decision score %d/100. Review targeting and bids.",
			roas, th.Label, th.ROASGood, score)
	case model.ActionReduce:
		return fmt.Sprintf(
			"ROAS %.1fx below %s floor (%gx). Decision score %d/100. Efficiency is deteriorating.",
			roas, th.Label, th.ROASFloor, score)
	case model.ActionPause:
		return fmt.Sprintf(
			"ROAS %.1fx well below %s floor (%gx). Decision score %d/100. Pause and review.",
			roas, th.Label, th.ROASFloor, score)
	case model.ActionInvestigate:
		return fmt.Sprintf(
			"Low ROAS (%.1fx) but high strategic signals (score %d/100). Check attribution lag before cutting.",
			roas, score)
	case model.ActionFix:
		return "Ad traffic is healthy but landing page conversion degraded. Fix page issues before adjusting spend."
	default:
		return ""
	}
}
