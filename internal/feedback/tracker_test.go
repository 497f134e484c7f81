package feedback

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adspend-cli/internal/model"
	"github.com/sells-group/adspend-cli/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return NewTracker(s), s
}

func fptr(v float64) *float64 { return &v }

func perfRecord(id string, action model.Action, roas *float64, analyzedAt time.Time) model.PerformanceRecord {
	return model.PerformanceRecord{
		CampaignID:         id,
		CampaignName:       "Campaign " + id,
		StrategyType:       model.StrategyHighConsideration,
		DecisionScore:      70,
		ShortTermStatus:    model.ShortTermHealthy,
		StrategicValue:     model.ValueModerate,
		StrategyAction:     action,
		StrategyConfidence: model.ConfidenceHigh,
		FinalAction:        action,
		FinalConfidence:    model.ConfidenceHigh,
		TrueROAS:           roas,
		TotalSpend:         500,
		TrueProfit:         fptr(300),
		PeriodStart:        analyzedAt.AddDate(0, 0, -7),
		PeriodEnd:          analyzedAt,
		PeriodDays:         7,
		AnalyzedAt:         analyzedAt,
	}
}

func TestJudge_ScaleDecisions(t *testing.T) {
	// Scaling at 4.0x is correct if ROAS holds at 3.6x or better.
	assert.Equal(t, model.VerdictCorrect, judge(model.ActionScale, fptr(4.0), 3.8))
	assert.Equal(t, model.VerdictWrong, judge(model.ActionScale, fptr(4.0), 3.0))
	assert.Equal(t, model.VerdictCorrect, judge(model.ActionScaleAggressively, fptr(2.0), 1.8))
}

func TestJudge_CutDecisions(t *testing.T) {
	// Cutting a campaign that was underwater is correct regardless of what
	// happened afterwards.
	assert.Equal(t, model.VerdictCorrect, judge(model.ActionPause, fptr(0.8), 2.0))
	assert.Equal(t, model.VerdictCorrect, judge(model.ActionReduce, fptr(1.4), 1.4))
	assert.Equal(t, model.VerdictWrong, judge(model.ActionPause, fptr(3.0), 3.0))
}

func TestJudge_NonDirectionalIsNeutral(t *testing.T) {
	for _, a := range []model.Action{
		model.ActionMaintain, model.ActionInvestigate, model.ActionFix,
		model.ActionReview, model.ActionOptimize,
	} {
		assert.Equal(t, model.VerdictNeutral, judge(a, fptr(2.0), 0.5), "action %s", a)
	}
}

func TestJudge_NoBaselineROASIsNeutral(t *testing.T) {
	assert.Equal(t, model.VerdictNeutral, judge(model.ActionScale, nil, 5.0))
}

func TestSnapshotDecisions_IdempotentPerEpoch(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	window := model.Window{Start: now.AddDate(0, 0, -7), End: now, Days: 7}
	records := []model.PerformanceRecord{
		perfRecord("c1", model.ActionScale, fptr(4.0), now),
		perfRecord("c2", model.ActionPause, fptr(0.8), now),
	}

	n, err := tr.SnapshotDecisions(ctx, window, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same epoch again: nothing new is written.
	n, err = tr.SnapshotDecisions(ctx, window, records)
	require.NoError(t, err)
	assert.Zero(t, n)

	// A later run on the same day still maps to the same epoch.
	laterWindow := model.Window{Start: window.Start, End: now.Add(5 * time.Hour), Days: 7}
	n, err = tr.SnapshotDecisions(ctx, laterWindow, records)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScoreOutcomes_SevenDayHorizon(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()

	decided := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	window := model.Window{Start: decided.AddDate(0, 0, -7), End: decided, Days: 7}
	_, err := tr.SnapshotDecisions(ctx, window, []model.PerformanceRecord{
		perfRecord("kept", model.ActionScale, fptr(4.0), decided),
		perfRecord("faded", model.ActionScale, fptr(4.0), decided),
		perfRecord("gone", model.ActionScale, fptr(4.0), decided),
	})
	require.NoError(t, err)

	// Current performance seven days on: one campaign held, one faded, one
	// vanished from the rollup entirely.
	now := decided.AddDate(0, 0, 7)
	_, err = st.UpsertPerformance(ctx, []model.PerformanceRecord{
		perfRecord("kept", model.ActionScale, fptr(3.8), now),
		perfRecord("faded", model.ActionScale, fptr(3.0), now),
	})
	require.NoError(t, err)

	scored, err := tr.ScoreOutcomes(ctx, HorizonShort, now)
	require.NoError(t, err)
	assert.Equal(t, 2, scored)

	kept, err := st.LatestSnapshot(ctx, "kept")
	require.NoError(t, err)
	require.NotNil(t, kept.OutcomeVerdict)
	assert.Equal(t, model.VerdictCorrect, *kept.OutcomeVerdict)
	require.NotNil(t, kept.Outcome7dROAS)
	assert.Equal(t, 3.8, *kept.Outcome7dROAS)

	faded, err := st.LatestSnapshot(ctx, "faded")
	require.NoError(t, err)
	require.NotNil(t, faded.OutcomeVerdict)
	assert.Equal(t, model.VerdictWrong, *faded.OutcomeVerdict)

	gone, err := st.LatestSnapshot(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, gone.OutcomeVerdict, "vanished campaigns stay unscored")

	// Re-running the same horizon scores nothing new.
	scored, err = tr.ScoreOutcomes(ctx, HorizonShort, now)
	require.NoError(t, err)
	assert.Zero(t, scored)
}

func TestScoreOutcomes_WindowExcludesYoungSnapshots(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	decided := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	window := model.Window{Start: decided.AddDate(0, 0, -7), End: decided, Days: 7}
	_, err := tr.SnapshotDecisions(ctx, window, []model.PerformanceRecord{
		perfRecord("young", model.ActionScale, fptr(4.0), decided),
	})
	require.NoError(t, err)

	// Only two days have passed; the 7-day horizon has not matured.
	scored, err := tr.ScoreOutcomes(ctx, HorizonShort, decided.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Zero(t, scored)
}

func TestScoreOutcomes_RejectsUnknownHorizon(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.ScoreOutcomes(context.Background(), 14, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported outcome horizon")
}

func TestRecordFeedback(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	window := model.Window{Start: now.AddDate(0, 0, -7), End: now, Days: 7}
	_, err := tr.SnapshotDecisions(ctx, window, []model.PerformanceRecord{
		perfRecord("c1", model.ActionPause, fptr(0.8), now),
	})
	require.NoError(t, err)

	override := model.ActionMaintain
	updated, err := tr.RecordFeedback(ctx, "c1", model.UserActionOverride, &override)
	require.NoError(t, err)

	// The returned snapshot carries the applied feedback.
	require.NotNil(t, updated)
	require.NotNil(t, updated.UserAction)
	assert.Equal(t, model.UserActionOverride, *updated.UserAction)
	require.NotNil(t, updated.UserOverrideTo)
	assert.Equal(t, model.ActionMaintain, *updated.UserOverrideTo)
	require.NotNil(t, updated.UserFeedbackAt)

	snap, err := st.LatestSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, updated.ID, snap.ID)
	require.NotNil(t, snap.UserOverrideTo)
	assert.Equal(t, model.ActionMaintain, *snap.UserOverrideTo)
}

func TestRecordFeedback_Validation(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordFeedback(ctx, "c1", model.UserActionOverride, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "override requires a target action")

	_, err = tr.RecordFeedback(ctx, "never-seen", model.UserActionAccept, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
