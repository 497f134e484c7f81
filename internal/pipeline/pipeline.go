// Package pipeline orchestrates the per-window decision run: classify, score,
// decide, triage, arbitrate, persist, snapshot.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/adspend-cli/internal/arbiter"
	"github.com/sells-group/adspend-cli/internal/config"
	"github.com/sells-group/adspend-cli/internal/feedback"
	"github.com/sells-group/adspend-cli/internal/model"
	"github.com/sells-group/adspend-cli/internal/store"
	"github.com/sells-group/adspend-cli/internal/strategy"
	"github.com/sells-group/adspend-cli/pkg/triage"
)

// Pipeline runs the decision chain over a batch of campaigns.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	triage     triage.Client // nil when the triage service is disabled
	thresholds strategy.ThresholdSet
	arb        *arbiter.Arbitrator
	tracker    *feedback.Tracker
}

// New creates a Pipeline with all dependencies. A nil triage client disables
// root-cause diagnosis; the arbitration rules that need it are skipped.
func New(cfg *config.Config, st store.Store, triageClient triage.Client, thresholds strategy.ThresholdSet) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		triage:     triageClient,
		thresholds: thresholds,
		arb:        arbiter.New(thresholds),
		tracker:    feedback.NewTracker(st),
	}
}

// RunSummary reports what one pipeline run did.
type RunSummary struct {
	Window       model.Window         `json:"window"`
	Total        int                  `json:"total"`
	Decided      int                  `json:"decided"`
	Failed       int                  `json:"failed"`
	Snapshotted  int                  `json:"snapshotted"`
	ActionCounts map[model.Action]int `json:"action_counts"`
	Duration     time.Duration        `json:"-"`
}

// Run executes the decision chain for every campaign in the batch. One bad
// campaign never sinks the batch: its failure is counted and the rest proceed.
// Decided records are upserted in bulk and snapshotted at the window's epoch.
func (p *Pipeline) Run(ctx context.Context, window model.Window, inputs []model.CampaignInput) (*RunSummary, error) {
	start := time.Now()
	log := zap.L().With(
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
		zap.Int("campaigns", len(inputs)),
	)
	log.Info("pipeline: starting decision run")

	var mu sync.Mutex
	records := make([]model.PerformanceRecord, 0, len(inputs))
	failed := 0

	g, gCtx := errgroup.WithContext(ctx)
	limit := p.cfg.Pipeline.MaxConcurrentCampaigns
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)

	for i := range inputs {
		input := &inputs[i]
		g.Go(func() error {
			rec, err := p.decideOne(gCtx, window, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Warn("pipeline: campaign failed",
					zap.String("campaign_id", input.Metrics.CampaignID),
					zap.Error(err))
				return nil
			}
			records = append(records, *rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: decision batch")
	}

	if _, err := p.store.UpsertPerformance(ctx, records); err != nil {
		return nil, eris.Wrap(err, "pipeline: persist decisions")
	}

	snapshotted, err := p.tracker.SnapshotDecisions(ctx, window, records)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: snapshot decisions")
	}

	summary := &RunSummary{
		Window:       window,
		Total:        len(inputs),
		Decided:      len(records),
		Failed:       failed,
		Snapshotted:  snapshotted,
		ActionCounts: make(map[model.Action]int),
		Duration:     time.Since(start),
	}
	for i := range records {
		summary.ActionCounts[records[i].FinalAction]++
	}

	log.Info("pipeline: decision run complete",
		zap.Int("decided", summary.Decided),
		zap.Int("failed", summary.Failed),
		zap.Int("snapshotted", summary.Snapshotted),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// decideOne runs the full decision chain for a single campaign.
func (p *Pipeline) decideOne(ctx context.Context, window model.Window, input *model.CampaignInput) (*model.PerformanceRecord, error) {
	m := input.Metrics
	if m.CampaignID == "" {
		return nil, eris.New("pipeline: campaign without id")
	}

	st := strategy.Classify(m.CampaignName, m.CampaignType, m.AOV)
	th := p.thresholds.For(st)
	score := strategy.Score(m, th)
	decision := strategy.Decide(score, m.TrueROAS, st, th, m.TotalSpend, window.Days)

	bundle := model.EvidenceBundle{
		Strategy:          decision,
		StrategyType:      st,
		DecisionScore:     score,
		DiminishingReturn: input.DiminishingReturn,
		Attribution:       input.Attribution,
		Waste:             input.Waste,
		Triage:            p.diagnose(ctx, window, m, decision),
	}

	result := p.arb.Arbitrate(m, bundle)

	primaryCause := ""
	if bundle.Triage != nil {
		primaryCause = bundle.Triage.PrimaryCause
	}

	return &model.PerformanceRecord{
		CampaignID:   m.CampaignID,
		CampaignName: m.CampaignName,
		CampaignType: m.CampaignType,
		IsActive:     m.IsActive,
		TrueROAS:     m.TrueROAS,
		TrueProfit:   m.TrueProfit,
		TotalSpend:   m.TotalSpend,

		StrategyType:       st,
		DecisionScore:      score,
		ShortTermStatus:    decision.ShortTerm,
		StrategicValue:     decision.StrategicValue,
		StrategyAction:     decision.Action,
		StrategyConfidence: decision.Confidence,

		FinalAction:     result.FinalAction,
		FinalConfidence: result.FinalConfidence,
		WhyNow:          result.WhyNow,
		PrimaryCause:    primaryCause,

		EvidenceChain: result.EvidenceChain,
		Overrides:     result.Overrides,

		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		PeriodDays:  window.Days,
		AnalyzedAt:  time.Now().UTC(),
	}, nil
}

// diagnose consults the triage service for campaigns whose baseline action is
// not a scale: healthy scaling campaigns need no root-cause analysis. A triage
// failure degrades to no diagnosis rather than failing the campaign.
func (p *Pipeline) diagnose(ctx context.Context, window model.Window, m model.CampaignMetrics, decision model.Decision) *model.TriageResult {
	if p.triage == nil || decision.Action.IsScaleType() {
		return nil
	}

	diag, err := p.triage.Diagnose(ctx, triage.DiagnoseRequest{
		CampaignID:          m.CampaignID,
		CampaignName:        m.CampaignName,
		WindowStart:         window.Start,
		WindowEnd:           window.End,
		PlatformConversions: m.PlatformConversions,
		VerifiedConversions: m.VerifiedConversions,
		CampaignType:        m.CampaignType,
		TrueROAS:            m.TrueROAS,
		CPA:                 m.CPA,
		TotalSpend:          m.TotalSpend,
		WindowDays:          window.Days,
	})
	if err != nil {
		zap.L().Warn("pipeline: triage unavailable, deciding without diagnosis",
			zap.String("campaign_id", m.CampaignID),
			zap.Error(err))
		return nil
	}

	result := &model.TriageResult{
		PrimaryCause: diag.PrimaryCause,
		Confidence:   diag.Confidence,
		Causes:       make([]model.CauseScore, len(diag.Causes)),
	}
	for i, c := range diag.Causes {
		result.Causes[i] = model.CauseScore{Cause: c.Cause, Score: c.Score, Evidence: c.Evidence}
	}
	return result
}
