package main

import (
	"errors"
	"os"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/server"

	"github.com/spf13/cobra"
)

var runFormat string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline once",
	Long: `Run protection, scoring, outcome recording, calibration, accuracy and
notification against the latest snapshots. Exits 1 when any stage fails.
A run that finds the lock held by another process exits 0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *server.App) error {
			report, err := app.RunPipeline(cmd.Context())
			if errors.Is(err, models.ErrLockHeld) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := printValue(os.Stdout, runFormat, report); err != nil {
				return err
			}
			if report.Failed() {
				return errStageFailed
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runFormat, "format", "json", "Output format (json|yaml)")
}
