package strategy

import "github.com/sells-group/adspend-cli/internal/model"

// actionMatrix maps (short-term efficiency, strategic value) to the baseline
// action. The matrix is total over its 4x3 domain.
var actionMatrix = map[model.ShortTerm]map[model.Value]model.Action{
	model.ShortTermStrong: {
		model.ValueHigh:     model.ActionScaleAggressively,
		model.ValueModerate: model.ActionScale,
		model.ValueLow:      model.ActionMaintain,
	},
	model.ShortTermHealthy: {
		model.ValueHigh:     model.ActionScale,
		model.ValueModerate: model.ActionMaintain,
		model.ValueLow:      model.ActionOptimize,
	},
	model.ShortTermMarginal: {
		model.ValueHigh:     model.ActionMaintain,
		model.ValueModerate: model.ActionOptimize,
		model.ValueLow:      model.ActionReduce,
	},
	model.ShortTermWeak: {
		model.ValueHigh:     model.ActionInvestigate,
		model.ValueModerate: model.ActionReduce,
		model.ValueLow:      model.ActionPause,
	},
}

// actionRank orders actions from most conservative (0) to most aggressive (6)
// for confidence gating.
var actionRank = map[model.Action]int{
	model.ActionScaleAggressively: 6,
	model.ActionScale:             5,
	model.ActionMaintain:          4,
	model.ActionInvestigate:       3,
	model.ActionOptimize:          2,
	model.ActionReduce:            1,
	model.ActionPause:             0,
}

var rankToAction = map[int]model.Action{
	6: model.ActionScaleAggressively,
	5: model.ActionScale,
	4: model.ActionMaintain,
	3: model.ActionInvestigate,
	2: model.ActionOptimize,
	1: model.ActionReduce,
	0: model.ActionPause,
}

// confidenceClamp caps the action rank reachable at each confidence level.
var confidenceClamp = map[model.Confidence]int{
	model.ConfidenceHigh:   6, // no clamp
	model.ConfidenceMedium: 5, // max = scale
	model.ConfidenceLow:    4, // max = maintain
}

// ActionRank returns the gating rank for an action. Diagnostic actions that
// only arbitration emits (fix, review) sit below maintain.
func ActionRank(a model.Action) int {
	if r, ok := actionRank[a]; ok {
		return r
	}
	switch a {
	case model.ActionFix:
		return 3
	case model.ActionReview:
		return 1
	}
	return 2
}

// MaintainRank is the rank of the maintain action, the profitability floor.
const MaintainRank = 4

// Decide produces the dual-status decision for a campaign: short-term
// efficiency from ROAS banding, strategic value from the decision score, the
// baseline action from the matrix, and confidence from spend and window
// length. Confidence gating clamps the action so that low-evidence campaigns
// never receive aggressive recommendations; unknown-archetype campaigns are
// always capped at maintain.
func Decide(score int, trueROAS *float64, st model.StrategyType, th Thresholds, totalSpend float64, days int) model.Decision {
	roas := 0.0
	if trueROAS != nil {
		roas = *trueROAS
	}

	var shortTerm model.ShortTerm
	switch {
	case roas >= th.ROASGreat:
		shortTerm = model.ShortTermStrong
	case roas >= th.ROASGood:
		shortTerm = model.ShortTermHealthy
	case roas >= th.ROASFloor:
		shortTerm = model.ShortTermMarginal
	default:
		shortTerm = model.ShortTermWeak
	}

	var value model.Value
	switch {
	case score >= 70:
		value = model.ValueHigh
	case score >= 45:
		value = model.ValueModerate
	default:
		value = model.ValueLow
	}

	action := actionMatrix[shortTerm][value]

	var confidence model.Confidence
	switch {
	case totalSpend < th.MinSpendForEval:
		confidence = model.ConfidenceLow
	case days >= 7:
		confidence = model.ConfidenceHigh
	case days >= 3:
		confidence = model.ConfidenceMedium
	default:
		confidence = model.ConfidenceLow
	}

	maxRank := confidenceClamp[confidence]
	// Unknown or zombie campaigns never scale, whatever the numbers say.
	if st == model.StrategyUnknown && maxRank > confidenceClamp[model.ConfidenceLow] {
		maxRank = confidenceClamp[model.ConfidenceLow]
	}
	if actionRank[action] > maxRank {
		action = rankToAction[maxRank]
	}

	return model.Decision{
		ShortTerm:      shortTerm,
		StrategicValue: value,
		Action:         action,
		Confidence:     confidence,
	}
}
