package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/artpar/rewardctl/adapters/cosmos"
	"github.com/artpar/rewardctl/adapters/sqlite"
	"github.com/artpar/rewardctl/bootstrap"
	"github.com/artpar/rewardctl/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before use",
	Long: `Validate the rewardctl configuration.

Checks:
  - YAML syntax is valid
  - Gas price, URLs and logging settings parse
  - Schema files load into the message registry
  - The mnemonic derives a key (when set)
  - The chain node answers (optional)
  - The journal database is writable (optional)

Examples:
  rewardctl validate
  rewardctl validate --config /etc/rewardctl/rewardctl.yaml --check-chain`,
	RunE: runValidate,
}

var (
	validateCheckChain    bool
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckChain, "check-chain", false, "check that the chain node is reachable")
	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check that the journal database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)
		cfg, err = config.Load(cfgFile)
	} else {
		fmt.Fprintf(out, "No config file at %s, validating environment...\n\n", cfgFile)
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	fmt.Fprintf(out, "  %s RPC: %s\n", checkMark, cfg.Chain.RPCURL)
	fmt.Fprintf(out, "  %s Gas: %s, limit %d\n", checkMark, cfg.Gas.Price, cfg.Gas.Limit)

	reg, err := bootstrap.NewRegistry(cfg.Schemas.Files)
	if err != nil {
		fmt.Fprintf(out, "  %s Message schemas\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Message types: %d\n", checkMark, len(reg.Types()))

	if cfg.Wallet.Mnemonic != "" {
		w, err := cosmos.NewWallet(walletConfig(cfg.Wallet, cfg.Wallet.Mnemonic))
		if err != nil {
			fmt.Fprintf(out, "  %s Wallet\n", crossMark)
			return err
		}
		fmt.Fprintf(out, "  %s Wallet: %s\n", checkMark, w.Address())
	} else {
		fmt.Fprintf(out, "  %s Wallet: none (query-only)\n", checkMark)
	}

	if validateCheckChain {
		if network, err := checkChainReachable(cmd.Context(), *cfg); err != nil {
			fmt.Fprintf(out, "  %s Chain reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Chain reachable (%s)\n", checkMark, network)
		}
	}

	if validateCheckDatabase {
		if !cfg.Database.JournalEnabled() || cfg.Database.InMemory() {
			fmt.Fprintf(out, "  %s Journal: %s (no database)\n", checkMark, cfg.Database.DSN)
		} else if err := checkDatabaseWritable(cfg.Database.DSN); err != nil {
			fmt.Fprintf(out, "  %s Database writable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Database writable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

// checkChainReachable asks the node for its network. The journal is
// disabled so the check never creates a database file.
func checkChainReachable(ctx context.Context, cfg config.Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg.Database.DSN = "none"
	a, err := bootstrap.New(bootstrap.Options{
		Config:    &cfg,
		Version:   version,
		LogOutput: io.Discard,
		QueryOnly: true,
	})
	if err != nil {
		return "", err
	}
	defer a.Shutdown()

	network, _, err := a.NodeInfo(ctx)
	return network, err
}

func checkDatabaseWritable(dsn string) error {
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate()
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
