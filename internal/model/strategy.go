package model

// StrategyType is the strategic archetype a campaign is classified into.
// The archetype selects which thresholds and scoring weights apply.
type StrategyType string

const (
	StrategyHighConsideration StrategyType = "high_consideration"
	StrategyFastTurn          StrategyType = "fast_turn"
	StrategyBrandDefense      StrategyType = "brand_defense"
	StrategyProspecting       StrategyType = "prospecting"
	StrategyUnknown           StrategyType = "unknown"
)

// AllStrategyTypes returns the five archetypes in display order.
func AllStrategyTypes() []StrategyType {
	return []StrategyType{
		StrategyHighConsideration,
		StrategyFastTurn,
		StrategyBrandDefense,
		StrategyProspecting,
		StrategyUnknown,
	}
}

// ShortTerm is the short-term efficiency band derived from ROAS.
type ShortTerm string

const (
	ShortTermWeak     ShortTerm = "weak"
	ShortTermMarginal ShortTerm = "marginal"
	ShortTermHealthy  ShortTerm = "healthy"
	ShortTermStrong   ShortTerm = "strong"
)

// Value is the strategic-value band derived from the decision score.
type Value string

const (
	ValueLow      Value = "low"
	ValueModerate Value = "moderate"
	ValueHigh     Value = "high"
)

// Action is the fixed recommendation vocabulary. Every stage of the decision
// chain emits a member of this set, nothing else.
type Action string

const (
	ActionScaleAggressively Action = "scale_aggressively"
	ActionScale             Action = "scale"
	ActionMaintain          Action = "maintain"
	ActionInvestigate       Action = "investigate"
	ActionFix               Action = "fix"
	ActionReview            Action = "review"
	ActionOptimize          Action = "optimize"
	ActionReduce            Action = "reduce"
	ActionPause             Action = "pause"
)

// IsScaleType reports whether the action increases exposure.
func (a Action) IsScaleType() bool {
	return a == ActionScale || a == ActionScaleAggressively
}

// Confidence grades how much evidence backs a decision.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Decision is the Decider's dual-status verdict for a campaign.
type Decision struct {
	ShortTerm      ShortTerm  `json:"short_term_status"`
	StrategicValue Value      `json:"strategic_value"`
	Action         Action     `json:"action"`
	Confidence     Confidence `json:"confidence"`
}
