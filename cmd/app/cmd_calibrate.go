package main

import (
	"os"

	"PricePulse/pkg/server"

	"github.com/spf13/cobra"
)

var calibrateFormat string

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Recalibrate alert thresholds from the ledgers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *server.App) error {
			res, err := app.Calibrate(cmd.Context())
			if err != nil {
				return err
			}
			return printValue(os.Stdout, calibrateFormat, res.Audit)
		})
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().StringVar(&calibrateFormat, "format", "json", "Output format (json|yaml)")
}
