// Package store persists campaign performance records and decision snapshots.
// Two implementations exist: Postgres (pgx, production) and SQLite (modernc,
// local/dev). Lookups return (nil, nil) when the row does not exist.
package store

import (
	"context"
	"time"

	"github.com/sells-group/adspend-cli/internal/model"
)

// Store defines the persistence interface for the decision engine.
type Store interface {
	// Performance records
	UpsertPerformance(ctx context.Context, records []model.PerformanceRecord) (int, error)
	GetPerformance(ctx context.Context, campaignID string) (*model.PerformanceRecord, error)
	ListDecided(ctx context.Context, limit int) ([]model.PerformanceRecord, error)

	// Decision snapshots
	InsertSnapshot(ctx context.Context, snap model.DecisionSnapshot) (bool, error)
	LatestSnapshot(ctx context.Context, campaignID string) (*model.DecisionSnapshot, error)
	ListUnscored(ctx context.Context, horizonDays int, epochStart, epochEnd time.Time) ([]model.DecisionSnapshot, error)
	SaveOutcome(ctx context.Context, snapshotID string, horizonDays int, roas, profit float64, verdict model.Verdict) error

	// Feedback and accuracy
	SaveFeedback(ctx context.Context, snapshotID string, action model.UserAction, overrideTo *model.Action) error
	AccuracyByType(ctx context.Context) ([]model.AccuracyRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
