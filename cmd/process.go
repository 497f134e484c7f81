package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/adspend-cli/internal/model"
)

var (
	processInput     string
	processWindowEnd string
	processDays      int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the decision pipeline over a batch of campaign metrics",
	Long:  "Reads a JSON array of campaign inputs, runs classify/score/decide/arbitrate for each, persists the decisions, and snapshots them at the window's epoch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		inputs, err := readCampaignInputs(processInput)
		if err != nil {
			return err
		}

		window, err := resolveWindow(processWindowEnd, processDays)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := e.Pipeline.Run(ctx, window, inputs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// readCampaignInputs loads the batch from a file, or stdin when path is "-".
func readCampaignInputs(path string) ([]model.CampaignInput, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open input %s", path)
		}
		defer f.Close()
		r = f
	}

	var inputs []model.CampaignInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, eris.Wrap(err, "decode campaign inputs")
	}
	if len(inputs) == 0 {
		return nil, eris.New("no campaigns in input")
	}
	return inputs, nil
}

// resolveWindow builds the evaluation window ending at the given date
// (YYYY-MM-DD, default today) and spanning the given number of days.
func resolveWindow(endStr string, days int) (model.Window, error) {
	if days <= 0 {
		return model.Window{}, eris.Errorf("window days must be positive, got %d", days)
	}

	end := time.Now().UTC()
	if endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return model.Window{}, eris.Wrapf(err, "parse window end %q", endStr)
		}
		end = parsed
	}

	return model.Window{
		Start: end.AddDate(0, 0, -days),
		End:   end,
		Days:  days,
	}, nil
}

func init() {
	processCmd.Flags().StringVar(&processInput, "input", "-", "path to campaign inputs JSON ('-' for stdin)")
	processCmd.Flags().StringVar(&processWindowEnd, "window-end", "", "window end date YYYY-MM-DD (default today)")
	processCmd.Flags().IntVar(&processDays, "window-days", 7, "evaluation window length in days")
	rootCmd.AddCommand(processCmd)
}
