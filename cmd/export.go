package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/adspend-cli/internal/model"
)

var (
	exportOut   string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decided campaigns to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := e.Store.ListDecided(ctx, exportLimit)
		if err != nil {
			return err
		}

		if err := writeDecisionsXLSX(exportOut, records); err != nil {
			return err
		}
		cmd.Printf("exported %d campaigns to %s\n", len(records), exportOut)
		return nil
	},
}

func writeDecisionsXLSX(path string, records []model.PerformanceRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Decisions")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Campaign ID", "Campaign", "Archetype", "Score",
		"Short-Term", "Value", "Action", "Confidence",
		"True ROAS", "Spend", "Why Now", "Primary Cause", "Overrides",
	} {
		header.AddCell().Value = h
	}

	for i := range records {
		r := &records[i]
		row := sheet.AddRow()
		row.AddCell().Value = r.CampaignID
		row.AddCell().Value = r.CampaignName
		row.AddCell().Value = string(r.StrategyType)
		row.AddCell().SetInt(r.DecisionScore)
		row.AddCell().Value = string(r.ShortTermStatus)
		row.AddCell().Value = string(r.StrategicValue)
		row.AddCell().Value = string(r.FinalAction)
		row.AddCell().Value = string(r.FinalConfidence)
		if r.TrueROAS != nil {
			row.AddCell().SetFloatWithFormat(*r.TrueROAS, "0.00")
		} else {
			row.AddCell().Value = ""
		}
		row.AddCell().SetFloatWithFormat(r.TotalSpend, "0.00")
		row.AddCell().Value = r.WhyNow
		row.AddCell().Value = r.PrimaryCause
		row.AddCell().SetInt(len(r.Overrides))
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "decisions.xlsx", "output workbook path")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 500, "max campaigns to export")
	rootCmd.AddCommand(exportCmd)
}
