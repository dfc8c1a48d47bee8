package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/artpar/rewardctl/bootstrap"
	"github.com/artpar/rewardctl/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rewardctl",
	Short: "Client for the Reward Chain partner and swap messages",
	Long: `rewardctl signs and broadcasts Reward Chain transactions, queries
partners and encodes or decodes messages with the chain's wire schemas.

Quick start:
  export REWARDCTL_MNEMONIC="..."   # signing key, never commit it
  rewardctl keys show               # print the account address
  rewardctl partner list            # query partners
  rewardctl serve                   # start the local HTTP gateway

Offline:
  rewardctl codec types             # list known message types
  rewardctl codec encode ...        # text form to wire bytes`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultFile, "config file path (environment only when missing)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// openApp initializes the client for a one-shot command. Logs go to stderr.
func openApp(cmd *cobra.Command, queryOnly bool) (*bootstrap.App, error) {
	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  cmd.ErrOrStderr(),
		QueryOnly:  queryOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
