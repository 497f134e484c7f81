package model

// Cause identifiers emitted by the causal-triage collaborator.
const (
	CauseDemand          = "demand"
	CauseAuctionPressure = "auction_pressure"
	CauseLandingPage     = "landing_page"
	CauseAttributionLag  = "attribution_lag"
	CauseCatalogFeed     = "catalog_feed"
	CauseMeasurement     = "measurement"
)

// CauseScore is one candidate root cause from the triage collaborator.
type CauseScore struct {
	Cause    string  `json:"cause"`
	Score    float64 `json:"score"`
	Evidence string  `json:"evidence"`
}

// TriageResult is the collaborator's full diagnosis for one campaign.
// Causes are sorted by score descending.
type TriageResult struct {
	PrimaryCause string       `json:"primary_cause"`
	Confidence   float64      `json:"confidence"`
	Causes       []CauseScore `json:"causes"`
}

// Cause returns the entry for the named cause, or nil if absent.
func (t *TriageResult) Cause(name string) *CauseScore {
	for i := range t.Causes {
		if t.Causes[i].Cause == name {
			return &t.Causes[i]
		}
	}
	return nil
}

// DREvidence is the diminishing-returns signal from the spend-curve processor.
type DREvidence struct {
	OverspendPerDay   float64    `json:"overspend_per_day"`
	OptimalDailySpend float64    `json:"optimal_daily_spend"`
	CurrentDailySpend float64    `json:"current_daily_spend"`
	Confidence        Confidence `json:"dr_confidence"`
	ActiveDays        int        `json:"active_days"`
}

// Material reports whether the overspend is big enough in both absolute and
// relative terms to be worth acting on, independent of confidence.
func (d *DREvidence) Material() bool {
	if d.CurrentDailySpend < 50 {
		return false
	}
	if d.OverspendPerDay > 50 {
		return true
	}
	if d.OptimalDailySpend > 0 && d.OverspendPerDay/d.OptimalDailySpend > 0.20 {
		return true
	}
	return false
}

// AttributionEvidence grades how much the conversion counts can be trusted.
type AttributionEvidence struct {
	Confidence Confidence `json:"confidence"`
	GapPct     *float64   `json:"gap_pct,omitempty"`
}

// WasteEvidence flags budget waste detected upstream.
type WasteEvidence struct {
	IsWasting bool     `json:"is_wasting"`
	Reasons   []string `json:"reasons,omitempty"`
}

// EvidenceBundle is everything the arbitrator weighs for one campaign. Every
// field after Strategy is optional; nil means the source produced no signal
// and the corresponding rules are skipped.
type EvidenceBundle struct {
	Strategy          Decision
	StrategyType      StrategyType
	DecisionScore     int
	DiminishingReturn *DREvidence
	Triage            *TriageResult
	Attribution       *AttributionEvidence
	Waste             *WasteEvidence
}

// Override records one forced action change during arbitration.
type Override struct {
	FromAction Action `json:"from_action"`
	ToAction   Action `json:"to_action"`
	Reason     string `json:"reason"`
	Module     string `json:"module"`
}

// EvidenceRef is one entry in the ordered audit trail: a signal that
// influenced, or was considered but did not change, the final decision.
type EvidenceRef struct {
	Module     string `json:"module"`
	Signal     string `json:"signal"`
	Confidence string `json:"confidence"`
	Direction  string `json:"direction"`
}

// ArbitrationResult is the final decision with its full audit trail.
type ArbitrationResult struct {
	FinalAction     Action        `json:"final_action"`
	FinalConfidence Confidence    `json:"final_confidence"`
	WhyNow          string        `json:"why_now"`
	EvidenceChain   []EvidenceRef `json:"evidence_chain"`
	Overrides       []Override    `json:"overrides"`
}
