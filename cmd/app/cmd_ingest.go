package main

import (
	"fmt"
	"time"

	"PricePulse/internal/repository"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/server"

	"github.com/spf13/cobra"
)

var (
	ingestFile string
	ingestAt   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store a snapshot CSV",
	Long: `Validate a snapshot CSV and store it under its capture time. Re-ingesting
the same capture time is a no-op.

Examples:
  pricepulse ingest --file players.csv
  pricepulse ingest --file players.csv --at 2024-09-14_06-00-00`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at := time.Now().UTC()
		if ingestAt != "" {
			parsed, err := time.ParseInLocation(repository.SnapshotTimeLayout, ingestAt, time.UTC)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			at = parsed
		}
		return withApp(func(app *server.App) error {
			snap, err := app.Ingest(cmd.Context(), ingestFile, at)
			if err != nil {
				return err
			}
			app.Logger().Info("snapshot ingested",
				applogger.Time("captured_at", snap.Timestamp),
				applogger.Int("entities", len(snap.Entities)),
			)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Snapshot CSV path")
	ingestCmd.Flags().StringVar(&ingestAt, "at", "", "Capture time as "+repository.SnapshotTimeLayout+" (default now, UTC)")
	_ = ingestCmd.MarkFlagRequired("file")
}
