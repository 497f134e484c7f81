package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/adspend-cli/internal/db"
	"github.com/sells-group/adspend-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_snapshot": `INSERT INTO decision_snapshots
		(id, campaign_id, campaign_name, strategy_type, epoch, decided_at,
		 action, confidence, decision_score, primary_cause,
		 true_roas, total_spend, true_profit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (campaign_id, epoch) DO NOTHING`,
	"latest_snapshot": `SELECT ` + snapshotColumns + ` FROM decision_snapshots
		WHERE campaign_id = $1 ORDER BY epoch DESC LIMIT 1`,
	"get_performance": `SELECT ` + performanceColumns + ` FROM campaign_performance WHERE campaign_id = $1`,
	"save_feedback": `UPDATE decision_snapshots
		SET user_action = $1, user_override_to = $2, user_feedback_at = $3 WHERE id = $4`,
}

const snapshotColumns = `id, campaign_id, campaign_name, strategy_type, epoch, decided_at,
	action, confidence, decision_score, primary_cause,
	true_roas, total_spend, true_profit,
	outcome_7d_roas, outcome_7d_profit, outcome_30d_roas, outcome_30d_profit,
	outcome_verdict, outcome_scored_at,
	user_action, user_override_to, user_feedback_at`

const performanceColumns = `campaign_id, campaign_name, campaign_type, is_active,
	true_roas, true_profit, total_spend,
	strategy_type, decision_score, short_term_status, strategic_value,
	strategy_action, strategy_confidence,
	final_action, final_confidence, why_now, primary_cause,
	evidence_chain, overrides,
	period_start, period_end, period_days, analyzed_at`

// performanceUpsertCols is the column order used by UpsertPerformance's bulk
// COPY path. Must match buildPerformanceRow.
var performanceUpsertCols = []string{
	"campaign_id", "campaign_name", "campaign_type", "is_active",
	"true_roas", "true_profit", "total_spend",
	"strategy_type", "decision_score", "short_term_status", "strategic_value",
	"strategy_action", "strategy_confidence",
	"final_action", "final_confidence", "why_now", "primary_cause",
	"evidence_chain", "overrides",
	"period_start", "period_end", "period_days", "analyzed_at",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaign_performance (
	campaign_id         TEXT PRIMARY KEY,
	campaign_name       TEXT NOT NULL,
	campaign_type       TEXT NOT NULL DEFAULT '',
	is_active           BOOLEAN NOT NULL DEFAULT true,
	true_roas           DOUBLE PRECISION,
	true_profit         DOUBLE PRECISION,
	total_spend         DOUBLE PRECISION NOT NULL DEFAULT 0,
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
	evidence_chain      JSONB,
	overrides           JSONB,
	period_start        TIMESTAMPTZ NOT NULL,
	period_end          TIMESTAMPTZ NOT NULL,
	period_days         INTEGER NOT NULL,
	analyzed_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_performance_final_action ON campaign_performance(final_action);
CREATE INDEX IF NOT EXISTS idx_performance_strategy_type ON campaign_performance(strategy_type);

CREATE TABLE IF NOT EXISTS decision_snapshots (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	campaign_id        TEXT NOT NULL,
	campaign_name      TEXT NOT NULL,
	strategy_type      TEXT NOT NULL,
	epoch              TIMESTAMPTZ NOT NULL,
	decided_at         TIMESTAMPTZ NOT NULL,
	action             TEXT NOT NULL,
	confidence         TEXT NOT NULL,
	decision_score     INTEGER NOT NULL,
	primary_cause      TEXT NOT NULL DEFAULT '',
	true_roas          DOUBLE PRECISION,
	total_spend        DOUBLE PRECISION NOT NULL DEFAULT 0,
	true_profit        DOUBLE PRECISION,
	outcome_7d_roas    DOUBLE PRECISION,
	outcome_7d_profit  DOUBLE PRECISION,
	outcome_30d_roas   DOUBLE PRECISION,
	outcome_30d_profit DOUBLE PRECISION,
	outcome_verdict    TEXT,
	outcome_scored_at  TIMESTAMPTZ,
	user_action        TEXT,
	user_override_to   TEXT,
	user_feedback_at   TIMESTAMPTZ,
	UNIQUE (campaign_id, epoch)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_campaign_id ON decision_snapshots(campaign_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_epoch ON decision_snapshots(epoch);
CREATE INDEX IF NOT EXISTS idx_snapshots_verdict ON decision_snapshots(outcome_verdict);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertPerformance(ctx context.Context, records []model.PerformanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for i := range records {
		row, err := buildPerformanceRow(&records[i])
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "campaign_performance",
		Columns:      performanceUpsertCols,
		ConflictKeys: []string{"campaign_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert performance")
	}
	return int(n), nil
}

func buildPerformanceRow(r *model.PerformanceRecord) ([]any, error) {
	chainJSON, err := json.Marshal(r.EvidenceChain)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: marshal evidence chain %s", r.CampaignID)
	}
	overridesJSON, err := json.Marshal(r.Overrides)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: marshal overrides %s", r.CampaignID)
	}
	return []any{
		r.CampaignID, r.CampaignName, r.CampaignType, r.IsActive,
		r.TrueROAS, r.TrueProfit, r.TotalSpend,
		string(r.StrategyType), r.DecisionScore, string(r.ShortTermStatus), string(r.StrategicValue),
		string(r.StrategyAction), string(r.StrategyConfidence),
		string(r.FinalAction), string(r.FinalConfidence), r.WhyNow, r.PrimaryCause,
		chainJSON, overridesJSON,
		r.PeriodStart, r.PeriodEnd, r.PeriodDays, r.AnalyzedAt,
	}, nil
}

func (s *PostgresStore) GetPerformance(ctx context.Context, campaignID string) (*model.PerformanceRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+performanceColumns+` FROM campaign_performance WHERE campaign_id = $1`,
		campaignID,
	)
	rec, err := scanPerformance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get performance %s", campaignID)
	}
	return rec, nil
}

func (s *PostgresStore) ListDecided(ctx context.Context, limit int) ([]model.PerformanceRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+performanceColumns+` FROM campaign_performance
		 ORDER BY analyzed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decided")
	}
	defer rows.Close()

	var records []model.PerformanceRecord
	for rows.Next() {
		rec, err := scanPerformance(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan performance")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list decided iterate")
}

func scanPerformance(row pgx.Row) (*model.PerformanceRecord, error) {
	var r model.PerformanceRecord
	var chainJSON, overridesJSON []byte

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
	if len(chainJSON) > 0 {
		if err := json.Unmarshal(chainJSON, &r.EvidenceChain); err != nil {
			return nil, eris.Wrap(err, "unmarshal evidence chain")
		}
	}
	if len(overridesJSON) > 0 {
		if err := json.Unmarshal(overridesJSON, &r.Overrides); err != nil {
			return nil, eris.Wrap(err, "unmarshal overrides")
		}
	}
	return &r, nil
}

func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap model.DecisionSnapshot) (bool, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO decision_snapshots
		 (id, campaign_id, campaign_name, strategy_type, epoch, decided_at,
		  action, confidence, decision_score, primary_cause,
		  true_roas, total_spend, true_profit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (campaign_id, epoch) DO NOTHING`,
		snap.ID, snap.CampaignID, snap.CampaignName, string(snap.StrategyType),
		snap.Epoch, snap.DecidedAt,
		string(snap.Action), string(snap.Confidence), snap.DecisionScore, snap.PrimaryCause,
		snap.TrueROAS, snap.TotalSpend, snap.TrueProfit,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert snapshot %s", snap.CampaignID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, campaignID string) (*model.DecisionSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM decision_snapshots
		 WHERE campaign_id = $1 ORDER BY epoch DESC LIMIT 1`,
		campaignID,
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: latest snapshot %s", campaignID)
	}
	return snap, nil
}

func (s *PostgresStore) ListUnscored(ctx context.Context, horizonDays int, epochStart, epochEnd time.Time) ([]model.DecisionSnapshot, error) {
	col, err := outcomeROASColumn(horizonDays)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM decision_snapshots
		 WHERE epoch >= $1 AND epoch <= $2 AND `+col+` IS NULL
		 ORDER BY epoch ASC`,
		epochStart, epochEnd,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list unscored %dd", horizonDays)
	}
	defer rows.Close()

	var snaps []model.DecisionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: list unscored iterate")
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, snapshotID string, horizonDays int, roas, profit float64, verdict model.Verdict) error {
	var query string
	switch horizonDays {
	case 7:
		query = `UPDATE decision_snapshots
			 SET outcome_7d_roas = $1, outcome_7d_profit = $2, outcome_verdict = $3, outcome_scored_at = $4
			 WHERE id = $5 AND outcome_7d_roas IS NULL`
	case 30:
		query = `UPDATE decision_snapshots
			 SET outcome_30d_roas = $1, outcome_30d_profit = $2, outcome_verdict = $3, outcome_scored_at = $4
			 WHERE id = $5 AND outcome_30d_roas IS NULL`
	default:
		return eris.Errorf("postgres: unsupported outcome horizon: %d", horizonDays)
	}

	_, err := s.pool.Exec(ctx, query, roas, profit, string(verdict), time.Now().UTC(), snapshotID)
	return eris.Wrapf(err, "postgres: save %dd outcome %s", horizonDays, snapshotID)
}

func (s *PostgresStore) SaveFeedback(ctx context.Context, snapshotID string, action model.UserAction, overrideTo *model.Action) error {
	var overrideStr *string
	if overrideTo != nil {
		v := string(*overrideTo)
		overrideStr = &v
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE decision_snapshots
		 SET user_action = $1, user_override_to = $2, user_feedback_at = $3 WHERE id = $4`,
		string(action), overrideStr, time.Now().UTC(), snapshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save feedback %s", snapshotID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("snapshot not found: %s", snapshotID)
	}
	return nil
}

func (s *PostgresStore) AccuracyByType(ctx context.Context) ([]model.AccuracyRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT strategy_type,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE outcome_verdict = 'correct'),
		        COUNT(*) FILTER (WHERE outcome_verdict = 'wrong'),
		        COUNT(*) FILTER (WHERE outcome_verdict = 'neutral')
		 FROM decision_snapshots
		 WHERE outcome_verdict IS NOT NULL
		 GROUP BY strategy_type
		 ORDER BY strategy_type`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: accuracy by type")
	}
	defer rows.Close()

	var out []model.AccuracyRow
	for rows.Next() {
		var r model.AccuracyRow
		if err := rows.Scan(&r.StrategyType, &r.Total, &r.Correct, &r.Wrong, &r.Neutral); err != nil {
			return nil, eris.Wrap(err, "postgres: scan accuracy row")
		}
		r.Accuracy = accuracyRatio(r.Correct, r.Wrong)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: accuracy iterate")
}

func scanSnapshot(row pgx.Row) (*model.DecisionSnapshot, error) {
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

// outcomeROASColumn maps an outcome horizon to the column that gates the
// write-once rule for it.
func outcomeROASColumn(horizonDays int) (string, error) {
	switch horizonDays {
	case 7:
		return "outcome_7d_roas", nil
	case 30:
		return "outcome_30d_roas", nil
	default:
		return "", eris.Errorf("postgres: unsupported outcome horizon: %d", horizonDays)
	}
}

// accuracyRatio is correct/(correct+wrong); neutral verdicts are excluded.
// Returns nil when there are no decided verdicts to judge.
func accuracyRatio(correct, wrong int) *float64 {
	decided := correct + wrong
	if decided == 0 {
		return nil
	}
	v := float64(correct) / float64(decided)
	return &v
}
