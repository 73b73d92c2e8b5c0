package main

import (
	"fmt"
	"os"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/server"
	"PricePulse/pkg/util"

	"github.com/spf13/cobra"
)

var (
	reportFrom    string
	reportTo      string
	reportHorizon int
	reportScope   string
	reportFormat  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print prediction accuracy",
	Long: `Print daily and overall prediction accuracy for the evaluated scope.

Examples:
  pricepulse report
  pricepulse report --from 2024-09-01 --to 2024-09-30
  pricepulse report --horizon 3 --format yaml
  pricepulse report --scope imminent`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p usecase.AccuracyParams
		var err error
		if p.From, err = parseOptionalDate(reportFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		if p.To, err = parseOptionalDate(reportTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
			return fmt.Errorf("--to is before --from")
		}
		p.Horizon = reportHorizon
		if reportScope != "" {
			p.Scope = models.Scope(reportScope)
			if !models.IsValidScope(p.Scope) {
				return fmt.Errorf("--scope: unknown scope %q", reportScope)
			}
		}
		return withApp(func(app *server.App) error {
			rep, err := app.Accuracy(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printValue(os.Stdout, reportFormat, rep)
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "First day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Last day (YYYY-MM-DD)")
	reportCmd.Flags().IntVar(&reportHorizon, "horizon", 0, "Outcome horizon in days (default from config)")
	reportCmd.Flags().StringVar(&reportScope, "scope", "", "Prediction scope: directional, actionable or imminent (default from config)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format (json|yaml)")
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := util.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
