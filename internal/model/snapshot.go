package model

import "time"

// Verdict is the scored outcome of a past decision.
type Verdict string

const (
	VerdictCorrect Verdict = "correct"
	VerdictWrong   Verdict = "wrong"
	VerdictNeutral Verdict = "neutral"
)

// UserAction is the feedback a human attaches to a recommendation.
type UserAction string

const (
	UserActionAccept   UserAction = "accept"
	UserActionOverride UserAction = "override"
)

// DecisionSnapshot freezes a campaign's decision at one epoch so it can be
// scored against realized performance later. Outcome fields start nil and are
// written exactly once per horizon.
type DecisionSnapshot struct {
	ID           string       `json:"id"`
	CampaignID   string       `json:"campaign_id"`
	CampaignName string       `json:"campaign_name"`
	StrategyType StrategyType `json:"strategy_type"`
	Epoch        time.Time    `json:"epoch"`
	DecidedAt    time.Time    `json:"decided_at"`

	Action        Action     `json:"action"`
	Confidence    Confidence `json:"confidence"`
	DecisionScore int        `json:"decision_score"`
	PrimaryCause  string     `json:"primary_cause,omitempty"`

	TrueROAS   *float64 `json:"true_roas,omitempty"`
	TotalSpend float64  `json:"total_spend"`
	TrueProfit *float64 `json:"true_profit,omitempty"`

	Outcome7dROAS    *float64   `json:"outcome_7d_roas,omitempty"`
	Outcome7dProfit  *float64   `json:"outcome_7d_profit,omitempty"`
	Outcome30dROAS   *float64   `json:"outcome_30d_roas,omitempty"`
	Outcome30dProfit *float64   `json:"outcome_30d_profit,omitempty"`
	OutcomeVerdict   *Verdict   `json:"outcome_verdict,omitempty"`
	OutcomeScoredAt  *time.Time `json:"outcome_scored_at,omitempty"`

	UserAction     *UserAction `json:"user_action,omitempty"`
	UserOverrideTo *Action     `json:"user_override_to,omitempty"`
	UserFeedbackAt *time.Time  `json:"user_feedback_at,omitempty"`
}

// AccuracyRow aggregates verdicts for one archetype.
type AccuracyRow struct {
	StrategyType StrategyType `json:"strategy_type"`
	Total        int          `json:"total"`
	Correct      int          `json:"correct"`
	Wrong        int          `json:"wrong"`
	Neutral      int          `json:"neutral"`
	Accuracy     *float64     `json:"accuracy,omitempty"`
}
