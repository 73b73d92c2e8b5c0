package main

import (
	"PricePulse/pkg/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only reporting API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *server.App) error {
			return app.Serve(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
