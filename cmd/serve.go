package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adspend-cli/internal/feedback"
	"github.com/sells-group/adspend-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for decision runs and feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// processRequest is the webhook body for POST /webhook/process.
type processRequest struct {
	WindowEnd  string                `json:"window_end,omitempty"`
	WindowDays int                   `json:"window_days,omitempty"`
	Campaigns  []model.CampaignInput `json:"campaigns"`
}

// feedbackRequest is the body for POST /feedback.
type feedbackRequest struct {
	CampaignID string `json:"campaign_id"`
	Action     string `json:"action"`
	OverrideTo string `json:"override_to,omitempty"`
}

func newRouter(e *env) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/process", func(w http.ResponseWriter, req *http.Request) {
		var body processRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(body.Campaigns) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "campaigns are required"})
			return
		}

		days := body.WindowDays
		if days == 0 {
			days = 7
		}
		window, err := resolveWindow(body.WindowEnd, days)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		// Run the batch asynchronously; the caller polls results via the store.
		// The run must outlive the HTTP request, but not run forever.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), 10*time.Minute)
		go func() {
			defer cancel()
			summary, runErr := e.Pipeline.Run(runCtx, window, body.Campaigns)
			if runErr != nil {
				zap.L().Error("webhook decision run failed", zap.Error(runErr))
				return
			}
			zap.L().Info("webhook decision run complete",
				zap.Int("decided", summary.Decided),
				zap.Int("failed", summary.Failed))
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":    "accepted",
			"campaigns": len(body.Campaigns),
		})
	})

	r.Post("/feedback", func(w http.ResponseWriter, req *http.Request) {
		var body feedbackRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.CampaignID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "campaign_id is required"})
			return
		}

		var action model.UserAction
		switch body.Action {
		case "accept":
			action = model.UserActionAccept
		case "override":
			action = model.UserActionOverride
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be accept or override"})
			return
		}

		var overrideTo *model.Action
		if body.OverrideTo != "" {
			a := model.Action(body.OverrideTo)
			overrideTo = &a
		}

		snap, err := feedback.NewTracker(e.Store).RecordFeedback(req.Context(), body.CampaignID, action, overrideTo)
		if err != nil {
			if errors.Is(err, feedback.ErrNoSnapshot) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	r.Get("/accuracy", func(w http.ResponseWriter, req *http.Request) {
		rows, err := feedback.NewTracker(e.Store).AccuracyByType(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []model.AccuracyRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
