// Package feedback closes the decision loop: it freezes each epoch's
// decisions as snapshots, scores them against realized performance at the
// 7-day and 30-day horizons, and records user accept/override responses.
package feedback

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adspend-cli/internal/model"
	"github.com/sells-group/adspend-cli/internal/store"
)

// Horizons supported by outcome scoring.
const (
	HorizonShort = 7
	HorizonLong  = 30
)

// roasRetentionFactor: a scale-type decision counts as correct when the
// realized ROAS holds at least this fraction of the ROAS at decision time.
const roasRetentionFactor = 0.9

// cutLoserROAS: a reduce/pause decision counts as correct when the campaign
// was below this ROAS at decision time.
const cutLoserROAS = 1.5

// Tracker manages the decision feedback lifecycle against a Store.
type Tracker struct {
	store store.Store
}

// NewTracker returns a Tracker backed by the given store.
func NewTracker(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// SnapshotDecisions freezes one snapshot per campaign for the window's epoch.
// A campaign already snapshotted at this epoch is skipped, so re-running a
// window never duplicates or rewrites history. Returns the number of new
// snapshots written.
func (t *Tracker) SnapshotDecisions(ctx context.Context, window model.Window, records []model.PerformanceRecord) (int, error) {
	epoch := window.Epoch()
	inserted := 0

	for i := range records {
		r := &records[i]
		snap := model.DecisionSnapshot{
			CampaignID:    r.CampaignID,
			CampaignName:  r.CampaignName,
			StrategyType:  r.StrategyType,
			Epoch:         epoch,
			DecidedAt:     r.AnalyzedAt,
			Action:        r.FinalAction,
			Confidence:    r.FinalConfidence,
			DecisionScore: r.DecisionScore,
			PrimaryCause:  r.PrimaryCause,
			TrueROAS:      r.TrueROAS,
			TotalSpend:    r.TotalSpend,
			TrueProfit:    r.TrueProfit,
		}
		ok, err := t.store.InsertSnapshot(ctx, snap)
		if err != nil {
			return inserted, eris.Wrapf(err, "feedback: snapshot %s", r.CampaignID)
		}
		if ok {
			inserted++
		} else {
			zap.L().Debug("snapshot exists for epoch, skipping",
				zap.String("campaign_id", r.CampaignID),
				zap.Time("epoch", epoch))
		}
	}

	zap.L().Info("decision snapshots written",
		zap.Time("epoch", epoch),
		zap.Int("inserted", inserted),
		zap.Int("total", len(records)))
	return inserted, nil
}

// ScoreOutcomes scores snapshots whose horizon has just matured: those with an
// epoch one horizon ago (within a one-day grace window) and no outcome for
// that horizon yet. Campaigns that have since disappeared from the performance
// table are left unscored. Returns the number of snapshots scored.
func (t *Tracker) ScoreOutcomes(ctx context.Context, horizonDays int, now time.Time) (int, error) {
	if horizonDays != HorizonShort && horizonDays != HorizonLong {
		return 0, eris.Errorf("feedback: unsupported outcome horizon: %d", horizonDays)
	}

	cutoff := now.UTC().AddDate(0, 0, -horizonDays)
	start := cutoff.AddDate(0, 0, -1)

	snaps, err := t.store.ListUnscored(ctx, horizonDays, start, cutoff)
	if err != nil {
		return 0, eris.Wrapf(err, "feedback: list unscored %dd", horizonDays)
	}

	scored := 0
	for i := range snaps {
		snap := &snaps[i]

		perf, err := t.store.GetPerformance(ctx, snap.CampaignID)
		if err != nil {
			return scored, eris.Wrapf(err, "feedback: outcome lookup %s", snap.CampaignID)
		}
		if perf == nil || perf.TrueROAS == nil {
			zap.L().Debug("no current performance for snapshot, skipping",
				zap.String("campaign_id", snap.CampaignID),
				zap.Int("horizon_days", horizonDays))
			continue
		}

		outcomeROAS := *perf.TrueROAS
		outcomeProfit := 0.0
		if perf.TrueProfit != nil {
			outcomeProfit = *perf.TrueProfit
		}

		verdict := judge(snap.Action, snap.TrueROAS, outcomeROAS)
		if err := t.store.SaveOutcome(ctx, snap.ID, horizonDays, outcomeROAS, outcomeProfit, verdict); err != nil {
			return scored, eris.Wrapf(err, "feedback: save outcome %s", snap.ID)
		}
		scored++
	}

	zap.L().Info("outcomes scored",
		zap.Int("horizon_days", horizonDays),
		zap.Int("scored", scored),
		zap.Int("candidates", len(snaps)))
	return scored, nil
}

// ErrNoSnapshot reports feedback against a campaign with no decision history.
var ErrNoSnapshot = eris.New("no snapshot for campaign")

// RecordFeedback attaches a user's accept/override response to a campaign's
// most recent snapshot and returns that snapshot with the feedback applied.
// Returns ErrNoSnapshot when the campaign has never been decided.
func (t *Tracker) RecordFeedback(ctx context.Context, campaignID string, action model.UserAction, overrideTo *model.Action) (*model.DecisionSnapshot, error) {
	if action == model.UserActionOverride && overrideTo == nil {
		return nil, eris.New("feedback: override requires a target action")
	}

	snap, err := t.store.LatestSnapshot(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrapf(err, "feedback: latest snapshot %s", campaignID)
	}
	if snap == nil {
		return nil, eris.Wrapf(ErrNoSnapshot, "%s", campaignID)
	}
	if err := t.store.SaveFeedback(ctx, snap.ID, action, overrideTo); err != nil {
		return nil, eris.Wrapf(err, "feedback: save %s", campaignID)
	}

	updated, err := t.store.LatestSnapshot(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrapf(err, "feedback: reload snapshot %s", campaignID)
	}
	return updated, nil
}

// AccuracyByType reports per-archetype verdict tallies for scored snapshots.
func (t *Tracker) AccuracyByType(ctx context.Context) ([]model.AccuracyRow, error) {
	rows, err := t.store.AccuracyByType(ctx)
	return rows, eris.Wrap(err, "feedback: accuracy by type")
}

// judge scores one decision against the realized ROAS.
//
// Scale-type actions are correct when the realized ROAS held up; cut actions
// are correct when the campaign was genuinely underwater at decision time.
// Everything else (maintain, investigate, fix, review, optimize) carries no
// directional bet, so it is neutral. A snapshot with no ROAS at decision time
// cannot be judged either way.
func judge(action model.Action, originalROAS *float64, outcomeROAS float64) model.Verdict {
	if originalROAS == nil {
		return model.VerdictNeutral
	}

	switch {
	case action.IsScaleType():
		if outcomeROAS >= roasRetentionFactor*(*originalROAS) {
			return model.VerdictCorrect
		}
		return model.VerdictWrong
	case action == model.ActionReduce || action == model.ActionPause:
		if *originalROAS < cutLoserROAS {
			return model.VerdictCorrect
		}
		return model.VerdictWrong
	default:
		return model.VerdictNeutral
	}
}
