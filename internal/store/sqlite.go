package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/adspend-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaign_performance (
	campaign_id         TEXT PRIMARY KEY,
	campaign_name       TEXT NOT NULL,
	campaign_type       TEXT NOT NULL DEFAULT '',
	is_active           INTEGER NOT NULL DEFAULT 1,
	true_roas           REAL,
	true_profit         REAL,
	total_spend         REAL NOT NULL DEFAULT 0,
	strategy_type       TEXT NOT NULL,
	decision_score      INTEGER NOT NULL,
	short_term_status   TEXT NOT NULL,
	strategic_value     TEXT NOT NULL,
	strategy_action     TEXT NOT NULL,
	strategy_confidence TEXT NOT NULL,
	final_action        TEXT NOT NULL,
	final_confidence    TEXT NOT NULL,
	why_now             TEXT NOT NULL DEFAULT '',
	primary_cause       TEXT NOT NULL DEFAULT '',
	evidence_chain      TEXT,
	overrides           TEXT,
	period_start        DATETIME NOT NULL,
	period_end          DATETIME NOT NULL,
	period_days         INTEGER NOT NULL,
	analyzed_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_performance_final_action ON campaign_performance(final_action);
CREATE INDEX IF NOT EXISTS idx_performance_strategy_type ON campaign_performance(strategy_type);

CREATE TABLE IF NOT EXISTS decision_snapshots (
	id                 TEXT PRIMARY KEY,
	campaign_id        TEXT NOT NULL,
	campaign_name      TEXT NOT NULL,
	strategy_type      TEXT NOT NULL,
	epoch              DATETIME NOT NULL,
	decided_at         DATETIME NOT NULL,
	action             TEXT NOT NULL,
	confidence         TEXT NOT NULL,
	decision_score     INTEGER NOT NULL,
	primary_cause      TEXT NOT NULL DEFAULT '',
	true_roas          REAL,
	total_spend        REAL NOT NULL DEFAULT 0,
	true_profit        REAL,
	outcome_7d_roas    REAL,
	outcome_7d_profit  REAL,
	outcome_30d_roas   REAL,
	outcome_30d_profit REAL,
	outcome_verdict    TEXT,
	outcome_scored_at  DATETIME,
	user_action        TEXT,
	user_override_to   TEXT,
	user_feedback_at   DATETIME,
	UNIQUE (campaign_id, epoch)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_campaign_id ON decision_snapshots(campaign_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_epoch ON decision_snapshots(epoch);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPerformance(ctx context.Context, records []model.PerformanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO campaign_performance (`+performanceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (campaign_id) DO UPDATE SET
		   campaign_name = excluded.campaign_name,
		   campaign_type = excluded.campaign_type,
		   is_active = excluded.is_active,
		   true_roas = excluded.true_roas,
		   true_profit = excluded.true_profit,
		   total_spend = excluded.total_spend,
		   strategy_type = excluded.strategy_type,
		   decision_score = excluded.decision_score,
		   short_term_status = excluded.short_term_status,
		   strategic_value = excluded.strategic_value,
		   strategy_action = excluded.strategy_action,
		   strategy_confidence = excluded.strategy_confidence,
		   final_action = excluded.final_action,
		   final_confidence = excluded.final_confidence,
		   why_now = excluded.why_now,
		   primary_cause = excluded.primary_cause,
		   evidence_chain = excluded.evidence_chain,
		   overrides = excluded.overrides,
		   period_start = excluded.period_start,
		   period_end = excluded.period_end,
		   period_days = excluded.period_days,
		   analyzed_at = excluded.analyzed_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	count := 0
	for i := range records {
		row, err := buildPerformanceRow(&records[i])
		if err != nil {
			return count, err
		}
		// JSON columns are stored as text.
		row[17] = string(row[17].([]byte))
		row[18] = string(row[18].([]byte))
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return count, eris.Wrapf(err, "sqlite: upsert performance %s", records[i].CampaignID)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, eris.Wrap(err, "sqlite: commit upsert")
	}
	return count, nil
}

func (s *SQLiteStore) GetPerformance(ctx context.Context, campaignID string) (*model.PerformanceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+performanceColumns+` FROM campaign_performance WHERE campaign_id = ?`,
		campaignID,
	)
	rec, err := scanPerformanceSQL(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get performance %s", campaignID)
	}
	return rec, nil
}

func (s *SQLiteStore) ListDecided(ctx context.Context, limit int) ([]model.PerformanceRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+performanceColumns+` FROM campaign_performance
		 ORDER BY analyzed_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decided")
	}
	defer rows.Close()

	var records []model.PerformanceRecord
	for rows.Next() {
		rec, err := scanPerformanceSQL(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan performance")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list decided iterate")
}

// sqlScanner covers both *sql.Row and *sql.Rows.
type sqlScanner interface {
	Scan(dest ...any) error
}

func scanPerformanceSQL(row sqlScanner) (*model.PerformanceRecord, error) {
	var r model.PerformanceRecord
	var chainJSON, overridesJSON sql.NullString

	err := row.Scan(
		&r.CampaignID, &r.CampaignName, &r.CampaignType, &r.IsActive,
		&r.TrueROAS, &r.TrueProfit, &r.TotalSpend,
		&r.StrategyType, &r.DecisionScore, &r.ShortTermStatus, &r.StrategicValue,
		&r.StrategyAction, &r.StrategyConfidence,
		&r.FinalAction, &r.FinalConfidence, &r.WhyNow, &r.PrimaryCause,
		&chainJSON, &overridesJSON,
		&r.PeriodStart, &r.PeriodEnd, &r.PeriodDays, &r.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}
	if chainJSON.Valid && chainJSON.String != "" {
		if err := json.Unmarshal([]byte(chainJSON.String), &r.EvidenceChain); err != nil {
			return nil, eris.Wrap(err, "unmarshal evidence chain")
		}
	}
	if overridesJSON.Valid && overridesJSON.String != "" {
		if err := json.Unmarshal([]byte(overridesJSON.String), &r.Overrides); err != nil {
			return nil, eris.Wrap(err, "unmarshal overrides")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap model.DecisionSnapshot) (bool, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO decision_snapshots
		 (id, campaign_id, campaign_name, strategy_type, epoch, decided_at,
		  action, confidence, decision_score, primary_cause,
		  true_roas, total_spend, true_profit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (campaign_id, epoch) DO NOTHING`,
		snap.ID, snap.CampaignID, snap.CampaignName, string(snap.StrategyType),
		snap.Epoch, snap.DecidedAt,
		string(snap.Action), string(snap.Confidence), snap.DecisionScore, snap.PrimaryCause,
		snap.TrueROAS, snap.TotalSpend, snap.TrueProfit,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert snapshot %s", snap.CampaignID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert snapshot rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, campaignID string) (*model.DecisionSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM decision_snapshots
		 WHERE campaign_id = ? ORDER BY epoch DESC LIMIT 1`,
		campaignID,
	)
	snap, err := scanSnapshotSQL(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: latest snapshot %s", campaignID)
	}
	return snap, nil
}

func (s *SQLiteStore) ListUnscored(ctx context.Context, horizonDays int, epochStart, epochEnd time.Time) ([]model.DecisionSnapshot, error) {
	col, err := outcomeROASColumn(horizonDays)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM decision_snapshots
		 WHERE epoch >= ? AND epoch <= ? AND `+col+` IS NULL
		 ORDER BY epoch ASC`,
		epochStart, epochEnd,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list unscored %dd", horizonDays)
	}
	defer rows.Close()

	var snaps []model.DecisionSnapshot
	for rows.Next() {
		snap, err := scanSnapshotSQL(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list unscored iterate")
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, snapshotID string, horizonDays int, roas, profit float64, verdict model.Verdict) error {
	var query string
	switch horizonDays {
	case 7:
		query = `UPDATE decision_snapshots
			 SET outcome_7d_roas = ?, outcome_7d_profit = ?, outcome_verdict = ?, outcome_scored_at = ?
			 WHERE id = ? AND outcome_7d_roas IS NULL`
	case 30:
		query = `UPDATE decision_snapshots
			 SET outcome_30d_roas = ?, outcome_30d_profit = ?, outcome_verdict = ?, outcome_scored_at = ?
			 WHERE id = ? AND outcome_30d_roas IS NULL`
	default:
		return eris.Errorf("sqlite: unsupported outcome horizon: %d", horizonDays)
	}

	_, err := s.db.ExecContext(ctx, query, roas, profit, string(verdict), time.Now().UTC(), snapshotID)
	return eris.Wrapf(err, "sqlite: save %dd outcome %s", horizonDays, snapshotID)
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, snapshotID string, action model.UserAction, overrideTo *model.Action) error {
	var overrideStr *string
	if overrideTo != nil {
		v := string(*overrideTo)
		overrideStr = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE decision_snapshots
		 SET user_action = ?, user_override_to = ?, user_feedback_at = ? WHERE id = ?`,
		string(action), overrideStr, time.Now().UTC(), snapshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save feedback %s", snapshotID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: feedback rows affected")
	}
	if n == 0 {
		return eris.Errorf("snapshot not found: %s", snapshotID)
	}
	return nil
}

func (s *SQLiteStore) AccuracyByType(ctx context.Context) ([]model.AccuracyRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy_type,
		        COUNT(*),
		        SUM(CASE WHEN outcome_verdict = 'correct' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN outcome_verdict = 'wrong' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN outcome_verdict = 'neutral' THEN 1 ELSE 0 END)
		 FROM decision_snapshots
		 WHERE outcome_verdict IS NOT NULL
		 GROUP BY strategy_type
		 ORDER BY strategy_type`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: accuracy by type")
	}
	defer rows.Close()

	var out []model.AccuracyRow
	for rows.Next() {
		var r model.AccuracyRow
		if err := rows.Scan(&r.StrategyType, &r.Total, &r.Correct, &r.Wrong, &r.Neutral); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan accuracy row")
		}
		r.Accuracy = accuracyRatio(r.Correct, r.Wrong)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: accuracy iterate")
}

func scanSnapshotSQL(row sqlScanner) (*model.DecisionSnapshot, error) {
	var s model.DecisionSnapshot
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.CampaignName, &s.StrategyType, &s.Epoch, &s.DecidedAt,
		&s.Action, &s.Confidence, &s.DecisionScore, &s.PrimaryCause,
		&s.TrueROAS, &s.TotalSpend, &s.TrueProfit,
		&s.Outcome7dROAS, &s.Outcome7dProfit, &s.Outcome30dROAS, &s.Outcome30dProfit,
		&s.OutcomeVerdict, &s.OutcomeScoredAt,
		&s.UserAction, &s.UserOverrideTo, &s.UserFeedbackAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
