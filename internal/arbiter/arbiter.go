// Package arbiter is the final policy layer: it weighs the Decider's baseline
// action against causal, attribution, diminishing-returns, and waste evidence
// through an ordered set of override rules, producing one decision with a
// complete audit trail.
package arbiter

import (
	"fmt"

	"github.com/sells-group/adspend-cli/internal/model"
	"github.com/sells-group/adspend-cli/internal/strategy"
)

// Module names recorded in overrides and the evidence chain.
const (
	moduleStrategy      = "strategy"
	moduleMeasurement   = "measurement"
	moduleLandingPage   = "landing_page"
	moduleAttribution   = "attribution"
	moduleDR            = "diminishing_returns"
	moduleWaste         = "waste"
	moduleProfitability = "profitability_protection"
)

// Evidence materiality and score cutoffs.
const (
	measurementScoreGate = 0.5
	landingPageScoreGate = 0.7
)

// Causal evidence strings that describe a healthy state; they never make a
// useful why-now explanation.
var neutralCauseEvidence = map[string]bool{
	"Demand stable":           true,
	"LP metrics stable":       true,
	"All sources fresh":       true,
	"Feed health OK":          true,
	"Auction pressure stable": true,
}

// Arbitrator applies the ordered policy rules. Construct with New; the
// threshold table is fixed for the arbitrator's lifetime.
type Arbitrator struct {
	thresholds strategy.ThresholdSet
}

// New returns an Arbitrator using the given immutable threshold table.
func New(thresholds strategy.ThresholdSet) *Arbitrator {
	return &Arbitrator{thresholds: thresholds}
}

// Arbitrate runs the six policy rules in order over the evidence bundle.
// Rules whose evidence is absent are skipped; every applied rule appends an
// override and an evidence-chain entry. Confidence never rises above the
// Decider's original confidence.
func (a *Arbitrator) Arbitrate(metrics model.CampaignMetrics, bundle model.EvidenceBundle) model.ArbitrationResult {
	action := bundle.Strategy.Action
	confidence := bundle.Strategy.Confidence
	th := a.thresholds.For(bundle.StrategyType)

	var overrides []model.Override
	chain := []model.EvidenceRef{{
		Module:     moduleStrategy,
		Signal:     fmt.Sprintf("%s/%s", bundle.Strategy.ShortTerm, bundle.Strategy.StrategicValue),
		Confidence: string(confidence),
		Direction:  string(action),
	}}

	force := func(to model.Action, reason, module, signal, signalConfidence string) {
		overrides = append(overrides, model.Override{
			FromAction: action,
			ToAction:   to,
			Reason:     reason,
			Module:     module,
		})
		chain = append(chain, model.EvidenceRef{
			Module:     module,
			Signal:     signal,
			Confidence: signalConfidence,
			Direction:  string(to),
		})
		action = to
	}

	// Rule 1: measurement gate. Stale or missing data sources make every
	// other signal suspect.
	if bundle.Triage != nil {
		if meas := bundle.Triage.Cause(model.CauseMeasurement); meas != nil && meas.Score > measurementScoreGate {
			force(model.ActionInvestigate,
				fmt.Sprintf("Data quality issue: %s", meas.Evidence),
				moduleMeasurement, meas.Evidence, string(model.ConfidenceHigh))
		}
	}

	// Rule 2: landing page override. Friction on the page, not the ads, is
	// the problem; cutting spend would not fix it.
	if bundle.Triage != nil {
		lp := bundle.Triage.Cause(model.CauseLandingPage)
		if lp != nil && lp.Score >= landingPageScoreGate &&
			(action == model.ActionReview || action == model.ActionPause || action == model.ActionFix) {
			force(model.ActionFix,
				fmt.Sprintf("Landing page issue detected: %s", lp.Evidence),
				moduleLandingPage, lp.Evidence, string(model.ConfidenceHigh))
		}
	}

	// Rule 3: attribution gate. Untrusted conversion counts cannot justify a
	// hard cut.
	if attr := bundle.Attribution; attr != nil && attr.Confidence == model.ConfidenceLow &&
		(action == model.ActionReview || action == model.ActionPause) {
		reason := "Low attribution confidence"
		if attr.GapPct != nil {
			reason = fmt.Sprintf("Low attribution confidence (gap: %.0f%%)", *attr.GapPct)
		}
		force(model.ActionInvestigate,
			reason+" - verify conversions before cutting",
			moduleAttribution, fmt.Sprintf("confidence=%s", attr.Confidence), string(model.ConfidenceLow))
	}

	// Rule 4: diminishing returns. Only high-confidence material overspend
	// blocks a scale action; material-but-uncertain evidence is recorded for
	// monitoring and must not change the action.
	if dr := bundle.DiminishingReturn; dr != nil && action.IsScaleType() && dr.Material() {
		signal := fmt.Sprintf("spend efficiency declining - marginal ROAS dropping after %dd of data", dr.ActiveDays)
		if dr.Confidence == model.ConfidenceHigh {
			force(model.ActionInvestigate,
				fmt.Sprintf("Diminishing returns (high confidence, %dd): %s", dr.ActiveDays, signal),
				moduleDR, signal, string(dr.Confidence))
		} else {
			chain = append(chain, model.EvidenceRef{
				Module:     moduleDR,
				Signal:     signal,
				Confidence: string(dr.Confidence),
				Direction:  "monitor",
			})
		}
	}

	// Rule 5: waste override. Known waste and a scale recommendation cannot
	// coexist.
	if bundle.Waste != nil && bundle.Waste.IsWasting && action.IsScaleType() {
		force(model.ActionInvestigate,
			"Waste signals detected - investigate before scaling",
			moduleWaste, "is_wasting=true", string(model.ConfidenceHigh))
	}

	// Rule 6: profitability protection. A high-confidence profitable campaign
	// is floored at maintain; this raises the action, never lowers it.
	if bundle.Strategy.Confidence == model.ConfidenceHigh && metrics.TrueROAS != nil &&
		*metrics.TrueROAS >= th.ROASGood && strategy.ActionRank(action) < strategy.MaintainRank {
		force(model.ActionMaintain,
			fmt.Sprintf("ROAS %.1fx above %s target (%gx) with high confidence - floor at maintain",
				*metrics.TrueROAS, bundle.StrategyType, th.ROASGood),
			moduleProfitability,
			fmt.Sprintf("roas=%.2f target=%.2f", *metrics.TrueROAS, th.ROASGood),
			string(model.ConfidenceHigh))
	}

	return model.ArbitrationResult{
		FinalAction:     action,
		FinalConfidence: confidence,
		WhyNow:          a.whyNow(action, metrics.TrueROAS, bundle, th, overrides),
		EvidenceChain:   chain,
		Overrides:       overrides,
	}
}

// whyNow picks the explanation in priority order: the most recent override's
// reason, then the triage primary cause, then the per-archetype template.
// The text is always diagnostic and never prescribes a budget move.
func (a *Arbitrator) whyNow(action model.Action, trueROAS *float64, bundle model.EvidenceBundle, th strategy.Thresholds, overrides []model.Override) string {
	roas := 0.0
	if trueROAS != nil {
		roas = *trueROAS
	}

	if len(overrides) > 0 {
		last := overrides[len(overrides)-1]
		switch last.Module {
		case moduleLandingPage:
			return fmt.Sprintf("Landing page conversion degraded (%s). Fix page issues before adjusting spend.", last.Reason)
		case moduleDR:
			if trueROAS != nil {
				return fmt.Sprintf("ROAS %.1fx looks strong but %s. Investigate spend efficiency.", roas, last.Reason)
			}
			return last.Reason
		case moduleMeasurement:
			return fmt.Sprintf("Data quality concern: %s. Resolve before acting.", last.Reason)
		case moduleProfitability:
			if trueROAS != nil {
				return fmt.Sprintf("ROAS %.1fx is profitable - holding at maintain despite low-confidence signals.", roas)
			}
			return last.Reason
		default:
			return last.Reason
		}
	}

	if t := bundle.Triage; t != nil && t.PrimaryCause != "" {
		base := strategy.WhyNow(action, trueROAS, th, bundle.DecisionScore)
		var causeEvidence string
		if c := t.Cause(t.PrimaryCause); c != nil {
			causeEvidence = c.Evidence
		}
		if base != "" && causeEvidence != "" && !neutralCauseEvidence[causeEvidence] {
			return fmt.Sprintf("%s Root cause: %s.", base, causeEvidence)
		}
		return base
	}

	return strategy.WhyNow(action, trueROAS, th, bundle.DecisionScore)
}
