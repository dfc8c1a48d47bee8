package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP gateway",
	Long: `Start the local HTTP gateway to the Reward Chain client.

The gateway exposes partner, swap, codec and journal endpoints under /v1,
plus /health, /metrics, /.well-known/openapi.json and the Swagger UI at
/swagger/. Edits to the config file, or SIGHUP, reload the logging level,
gas settings and event matcher without a restart.

Examples:
  rewardctl serve
  rewardctl serve --config /etc/rewardctl/rewardctl.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	return a.Run()
}
