package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adspend-cli/internal/pipeline"
	"github.com/sells-group/adspend-cli/internal/store"
	"github.com/sells-group/adspend-cli/internal/strategy"
	"github.com/sells-group/adspend-cli/pkg/triage"
)

// env bundles the wired-up subsystems a command needs.
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "adspend.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newTriageClient() triage.Client {
	if !cfg.Triage.Enabled || cfg.Triage.URL == "" {
		return nil
	}
	timeout := time.Duration(cfg.Triage.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return triage.NewClient(
		triage.WithBaseURL(cfg.Triage.URL),
		triage.WithRateLimit(cfg.Triage.RateLimit, cfg.Triage.RateBurst),
		triage.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

// initEnv wires store, thresholds, triage and pipeline for a command run.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	thresholds, err := strategy.LoadThresholds(cfg.Pipeline.ThresholdsFile)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "load thresholds")
	}

	return &env{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, newTriageClient(), thresholds),
	}, nil
}
