package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adspend-cli/internal/model"
	"github.com/sells-group/adspend-cli/internal/strategy"
)

func f64(v float64) *float64 { return &v }

func newArbitrator() *Arbitrator {
	return New(strategy.DefaultThresholds())
}

func baseBundle(action model.Action, conf model.Confidence) model.EvidenceBundle {
	return model.EvidenceBundle{
		Strategy: model.Decision{
			ShortTerm:      model.ShortTermHealthy,
			StrategicValue: model.ValueModerate,
			Action:         action,
			Confidence:     conf,
		},
		StrategyType:  model.StrategyHighConsideration,
		DecisionScore: 60,
	}
}

func TestArbitrate_NoEvidenceLeavesActionUnchanged(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionMaintain, model.ConfidenceMedium)

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(2.6)}, bundle)

	assert.Equal(t, model.ActionMaintain, res.FinalAction)
	assert.Equal(t, model.ConfidenceMedium, res.FinalConfidence)
	assert.Empty(t, res.Overrides)
	require.Len(t, res.EvidenceChain, 1)
	assert.Equal(t, "strategy", res.EvidenceChain[0].Module)
	assert.NotEmpty(t, res.WhyNow)
}

func TestArbitrate_MeasurementGateForcesInvestigate(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScale, model.ConfidenceHigh)
	bundle.Triage = &model.TriageResult{
		PrimaryCause: model.CauseMeasurement,
		Causes: []model.CauseScore{
			{Cause: model.CauseMeasurement, Score: 0.8, Evidence: "Search Console data 9 days stale"},
		},
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)

	assert.Equal(t, model.ActionInvestigate, res.FinalAction)
	require.Len(t, res.Overrides, 1)
	assert.Equal(t, "measurement", res.Overrides[0].Module)
	assert.Equal(t, model.ActionScale, res.Overrides[0].FromAction)
	assert.Contains(t, res.WhyNow, "Data quality concern")
}

func TestArbitrate_MeasurementGateNeedsScoreAboveHalf(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionMaintain, model.ConfidenceHigh)
	bundle.Triage = &model.TriageResult{
		Causes: []model.CauseScore{
			{Cause: model.CauseMeasurement, Score: 0.5, Evidence: "borderline"},
		},
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(2.6)}, bundle)
	assert.Empty(t, res.Overrides)
}

func TestArbitrate_LandingPageOverridesPause(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionPause, model.ConfidenceMedium)
	bundle.Triage = &model.TriageResult{
		PrimaryCause: model.CauseLandingPage,
		Causes: []model.CauseScore{
			{Cause: model.CauseLandingPage, Score: 0.75, Evidence: "CVR down 40% on /checkout"},
		},
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(1.0)}, bundle)

	assert.Equal(t, model.ActionFix, res.FinalAction)
	require.Len(t, res.Overrides, 1)
	assert.Equal(t, "landing_page", res.Overrides[0].Module)
	assert.Contains(t, res.WhyNow, "Landing page conversion degraded")
}

func TestArbitrate_LandingPageSkippedForScaleActions(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScale, model.ConfidenceHigh)
	bundle.Triage = &model.TriageResult{
		Causes: []model.CauseScore{
			{Cause: model.CauseLandingPage, Score: 0.9, Evidence: "CVR down"},
		},
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)
	assert.Equal(t, model.ActionScale, res.FinalAction)
}

func TestArbitrate_AttributionGateBlocksCut(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionPause, model.ConfidenceMedium)
	bundle.Attribution = &model.AttributionEvidence{
		Confidence: model.ConfidenceLow,
		GapPct:     f64(72),
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(0.8)}, bundle)

	assert.Equal(t, model.ActionInvestigate, res.FinalAction)
	require.Len(t, res.Overrides, 1)
	assert.Equal(t, "attribution", res.Overrides[0].Module)
	assert.Contains(t, res.Overrides[0].Reason, "gap: 72%")
}

func TestArbitrate_AttributionAbsenceIsNotNegativeEvidence(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionPause, model.ConfidenceMedium)
	// No attribution evidence at all: the rule must be skipped, not treated
	// as low confidence.
	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(0.8)}, bundle)
	assert.Equal(t, model.ActionPause, res.FinalAction)
}

func TestArbitrate_DiminishingReturnsHighConfidenceBlocksScale(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScaleAggressively, model.ConfidenceHigh)
	bundle.DiminishingReturn = &model.DREvidence{
		OverspendPerDay:   80,
		OptimalDailySpend: 150,
		CurrentDailySpend: 230,
		Confidence:        model.ConfidenceHigh,
		ActiveDays:        21,
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)

	assert.Equal(t, model.ActionInvestigate, res.FinalAction)
	require.Len(t, res.Overrides, 1)
	assert.Equal(t, "diminishing_returns", res.Overrides[0].Module)
	assert.Contains(t, res.WhyNow, "Investigate spend efficiency")
}

func TestArbitrate_DiminishingReturnsMediumConfidenceMonitorsOnly(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScale, model.ConfidenceHigh)
	// Material: overspend $80 absolute and 53% of optimal. Confidence medium:
	// action unchanged, monitor entry recorded.
	bundle.DiminishingReturn = &model.DREvidence{
		OverspendPerDay:   80,
		OptimalDailySpend: 150,
		CurrentDailySpend: 230,
		Confidence:        model.ConfidenceMedium,
		ActiveDays:        14,
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)

	assert.Equal(t, model.ActionScale, res.FinalAction)
	assert.Empty(t, res.Overrides)

	var monitor *model.EvidenceRef
	for i := range res.EvidenceChain {
		if res.EvidenceChain[i].Module == "diminishing_returns" {
			monitor = &res.EvidenceChain[i]
		}
	}
	require.NotNil(t, monitor, "expected a monitor entry in the evidence chain")
	assert.Equal(t, "monitor", monitor.Direction)
}

func TestArbitrate_DiminishingReturnsImmaterialIgnored(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScale, model.ConfidenceHigh)
	// Below the $50/day spend floor: not material regardless of overspend.
	bundle.DiminishingReturn = &model.DREvidence{
		OverspendPerDay:   60,
		OptimalDailySpend: 20,
		CurrentDailySpend: 40,
		Confidence:        model.ConfidenceHigh,
		ActiveDays:        30,
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)
	assert.Equal(t, model.ActionScale, res.FinalAction)
	assert.Len(t, res.EvidenceChain, 1)
}

func TestArbitrate_WasteBlocksScale(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScale, model.ConfidenceHigh)
	bundle.Waste = &model.WasteEvidence{IsWasting: true, Reasons: []string{"zero-conversion spend"}}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)

	assert.Equal(t, model.ActionInvestigate, res.FinalAction)
	require.Len(t, res.Overrides, 1)
	assert.Equal(t, "waste", res.Overrides[0].Module)
}

func TestArbitrate_WasteIgnoredForNonScaleActions(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionOptimize, model.ConfidenceHigh)
	bundle.Waste = &model.WasteEvidence{IsWasting: true}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(2.0)}, bundle)
	assert.Equal(t, model.ActionOptimize, res.FinalAction)
}

func TestArbitrate_ProfitabilityProtectionFloorsAtMaintain(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionReduce, model.ConfidenceHigh)

	// HC good threshold is 2.5; ROAS 3.0 with high confidence floors the
	// reduce at maintain.
	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)

	assert.Equal(t, model.ActionMaintain, res.FinalAction)
	require.Len(t, res.Overrides, 1)
	assert.Equal(t, "profitability_protection", res.Overrides[0].Module)
	assert.GreaterOrEqual(t, strategy.ActionRank(res.FinalAction), strategy.MaintainRank)
}

func TestArbitrate_ProfitabilityProtectionIsFloorNotCeiling(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionScaleAggressively, model.ConfidenceHigh)

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(5.0)}, bundle)
	assert.Equal(t, model.ActionScaleAggressively, res.FinalAction)
	assert.Empty(t, res.Overrides)
}

func TestArbitrate_ProfitabilityProtectionNeedsHighConfidence(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionReduce, model.ConfidenceMedium)

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)
	assert.Equal(t, model.ActionReduce, res.FinalAction)
}

func TestArbitrate_ConfidenceNeverIncreases(t *testing.T) {
	a := newArbitrator()
	for _, conf := range []model.Confidence{model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh} {
		bundle := baseBundle(model.ActionScale, conf)
		bundle.Waste = &model.WasteEvidence{IsWasting: true}
		res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)
		assert.Equal(t, conf, res.FinalConfidence)
	}
}

func TestArbitrate_OverridesStack(t *testing.T) {
	a := newArbitrator()
	// Pause + low attribution confidence forces investigate (rule 3); the
	// campaign is also high-confidence profitable, but investigate is below
	// maintain so rule 6 then floors it.
	bundle := baseBundle(model.ActionPause, model.ConfidenceHigh)
	bundle.Attribution = &model.AttributionEvidence{Confidence: model.ConfidenceLow}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, bundle)

	require.Len(t, res.Overrides, 2)
	assert.Equal(t, "attribution", res.Overrides[0].Module)
	assert.Equal(t, model.ActionPause, res.Overrides[0].FromAction)
	assert.Equal(t, model.ActionInvestigate, res.Overrides[0].ToAction)
	assert.Equal(t, "profitability_protection", res.Overrides[1].Module)
	assert.Equal(t, model.ActionInvestigate, res.Overrides[1].FromAction)
	assert.Equal(t, model.ActionMaintain, res.Overrides[1].ToAction)
	assert.Equal(t, model.ActionMaintain, res.FinalAction)
}

func TestArbitrate_WhyNowUsesPrimaryCauseWhenNoOverride(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionOptimize, model.ConfidenceMedium)
	bundle.Triage = &model.TriageResult{
		PrimaryCause: model.CauseDemand,
		Causes: []model.CauseScore{
			{Cause: model.CauseDemand, Score: 0.4, Evidence: "Search clicks down 22% period over period"},
		},
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(2.0)}, bundle)
	assert.Contains(t, res.WhyNow, "Root cause: Search clicks down 22%")
}

func TestArbitrate_WhyNowSuppressesNeutralCauses(t *testing.T) {
	a := newArbitrator()
	bundle := baseBundle(model.ActionOptimize, model.ConfidenceMedium)
	bundle.Triage = &model.TriageResult{
		PrimaryCause: model.CauseDemand,
		Causes: []model.CauseScore{
			{Cause: model.CauseDemand, Score: 0.2, Evidence: "Demand stable"},
		},
	}

	res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(2.0)}, bundle)
	assert.NotContains(t, res.WhyNow, "Root cause")
	assert.NotEmpty(t, res.WhyNow)
}

func TestArbitrate_WhyNowNeverPrescribesBudget(t *testing.T) {
	a := newArbitrator()
	bundles := []model.EvidenceBundle{
		baseBundle(model.ActionScaleAggressively, model.ConfidenceHigh),
		baseBundle(model.ActionReduce, model.ConfidenceHigh),
		baseBundle(model.ActionPause, model.ConfidenceLow),
	}
	bundles[1].Waste = &model.WasteEvidence{IsWasting: true}

	for _, b := range bundles {
		res := a.Arbitrate(model.CampaignMetrics{TrueROAS: f64(3.0)}, b)
		assert.NotContains(t, res.WhyNow, "budget")
		assert.NotContains(t, res.WhyNow, "$")
	}
}
