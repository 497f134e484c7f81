package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/adspend-cli/internal/feedback"
	"github.com/sells-group/adspend-cli/internal/model"
)

var (
	feedbackCampaign   string
	feedbackAction     string
	feedbackOverrideTo string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record a user's response to a campaign's latest recommendation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if feedbackCampaign == "" {
			return eris.New("--campaign is required")
		}

		var action model.UserAction
		switch feedbackAction {
		case "accept":
			action = model.UserActionAccept
		case "override":
			action = model.UserActionOverride
		default:
			return eris.Errorf("action must be accept or override, got %q", feedbackAction)
		}

		var overrideTo *model.Action
		if feedbackOverrideTo != "" {
			a := model.Action(feedbackOverrideTo)
			overrideTo = &a
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		tracker := feedback.NewTracker(e.Store)
		snap, err := tracker.RecordFeedback(ctx, feedbackCampaign, action, overrideTo)
		if err != nil {
			return err
		}

		cmd.Printf("feedback recorded for %s: %s (decision %s at epoch %s)\n",
			feedbackCampaign, feedbackAction, snap.Action, snap.Epoch.Format("2006-01-02"))
		return nil
	},
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackCampaign, "campaign", "", "campaign ID")
	feedbackCmd.Flags().StringVar(&feedbackAction, "action", "accept", "accept or override")
	feedbackCmd.Flags().StringVar(&feedbackOverrideTo, "override-to", "", "action the user chose instead")
	rootCmd.AddCommand(feedbackCmd)
}
