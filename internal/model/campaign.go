package model

import "time"

// Window identifies the evaluation period a processing run covers. End doubles
// as the decision epoch: one snapshot per campaign per epoch.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Epoch returns the snapshot epoch for this window (date of the window end).
func (w Window) Epoch() time.Time {
	return time.Date(w.End.Year(), w.End.Month(), w.End.Day(), 0, 0, 0, 0, time.UTC)
}

// CampaignMetrics is the aggregated per-campaign record produced by the
// upstream rollup stage. Optional measurements are pointers; a nil value means
// "no signal", never zero.
type CampaignMetrics struct {
	CampaignID        string   `json:"campaign_id"`
	CampaignName      string   `json:"campaign_name"`
	CampaignType      string   `json:"campaign_type"`
	TrueROAS          *float64 `json:"true_roas"`
	CPA               *float64 `json:"cpa"`
	LostImpressionPct *float64 `json:"lost_impression_share_pct"`
	FullyLoadedROAS   *float64 `json:"fully_loaded_roas"`
	AOV               *float64 `json:"aov"`
	TrueProfit        *float64 `json:"true_profit"`

	// Platform-reported vs backend-verified conversion counts. The gap
	// between the two is the triage service's attribution signal.
	PlatformConversions *float64 `json:"platform_conversions,omitempty"`
	VerifiedConversions *float64 `json:"verified_conversions,omitempty"`

	TotalSpend        float64  `json:"total_spend"`
	Days              int      `json:"days"`
	IsActive          bool     `json:"is_active"`
}

// CampaignInput bundles a campaign's metrics with the optional evidence that
// upstream processors supply alongside them. Nil evidence means the processor
// produced nothing for this campaign.
type CampaignInput struct {
	Metrics           CampaignMetrics      `json:"metrics"`
	DiminishingReturn *DREvidence          `json:"diminishing_returns,omitempty"`
	Attribution       *AttributionEvidence `json:"attribution,omitempty"`
	Waste             *WasteEvidence       `json:"waste,omitempty"`
}

// PerformanceRecord is the downstream per-campaign record this engine updates:
// the current metrics plus the strategy fields produced by the decision chain.
type PerformanceRecord struct {
	CampaignID   string   `json:"campaign_id"`
	CampaignName string   `json:"campaign_name"`
	CampaignType string   `json:"campaign_type"`
	IsActive     bool     `json:"is_active"`
	TrueROAS     *float64 `json:"true_roas"`
	TrueProfit   *float64 `json:"true_profit"`
	TotalSpend   float64  `json:"total_spend"`

	StrategyType       StrategyType `json:"strategy_type"`
	DecisionScore      int          `json:"decision_score"`
	ShortTermStatus    ShortTerm    `json:"short_term_status"`
	StrategicValue     Value        `json:"strategic_value"`
	StrategyAction     Action       `json:"strategy_action"`
	StrategyConfidence Confidence   `json:"strategy_confidence"`

	FinalAction     Action     `json:"final_action"`
	FinalConfidence Confidence `json:"final_confidence"`
	WhyNow          string     `json:"why_now,omitempty"`
	PrimaryCause    string     `json:"primary_cause,omitempty"`

	EvidenceChain []EvidenceRef `json:"evidence_chain,omitempty"`
	Overrides     []Override    `json:"overrides,omitempty"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	PeriodDays  int       `json:"period_days"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}
