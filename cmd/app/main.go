package main

import (
	"errors"
	"fmt"
	"os"

	"PricePulse/internal/di"
	"PricePulse/pkg/config"
	"PricePulse/pkg/server"

	"github.com/spf13/cobra"
)

// errStageFailed makes the process exit non-zero after the report is printed.
var errStageFailed = errors.New("one or more pipeline stages failed")

var configPath string

// rootCmd is the base command for the PricePulse CLI.
var rootCmd = &cobra.Command{
	Use:   "pricepulse",
	Short: "Daily price change prediction pipeline",
	Long: `PricePulse ingests ownership snapshots, predicts which entities are about
to change price, records what actually happened and recalibrates its alert
thresholds from the outcomes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
}

// withApp loads config, wires the application and hands it to fn.
func withApp(fn func(app *server.App) error) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()
	return fn(app)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errStageFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
