package main

import (
	"errors"
	"fmt"

	"github.com/artpar/rewardctl/adapters/cosmos"
	"github.com/artpar/rewardctl/config"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the signing key",
	Long: `Show or generate the account key used to sign transactions.

The key is derived from a BIP-39 mnemonic, read from wallet.mnemonic in the
config file or from REWARDCTL_MNEMONIC.

Examples:
  rewardctl keys show
  rewardctl keys generate`,
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the address of the configured key",
	Args:  cobra.NoArgs,
	RunE:  runKeysShow,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new mnemonic and print its address",
	Args:  cobra.NoArgs,
	RunE:  runKeysGenerate,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysGenerateCmd)
}

func walletConfig(cfg config.WalletConfig, mnemonic string) cosmos.WalletConfig {
	return cosmos.WalletConfig{
		Mnemonic:   mnemonic,
		Passphrase: cfg.Passphrase,
		HDPath:     cfg.HDPath,
		Prefix:     cfg.Prefix,
	}
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Wallet.Mnemonic == "" {
		return errors.New("no mnemonic configured (set wallet.mnemonic or REWARDCTL_MNEMONIC)")
	}

	w, err := cosmos.NewWallet(walletConfig(cfg.Wallet, cfg.Wallet.Mnemonic))
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"address": w.Address(),
			"hdPath":  cfg.Wallet.HDPath,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), w.Address())
	return nil
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	mnemonic, err := cosmos.GenerateMnemonic()
	if err != nil {
		return fmt.Errorf("generate mnemonic: %w", err)
	}
	w, err := cosmos.NewWallet(walletConfig(cfg.Wallet, mnemonic))
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"address":  w.Address(),
			"mnemonic": mnemonic,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Address:  %s\n", w.Address())
	fmt.Fprintf(out, "Mnemonic: %s\n\n", mnemonic)
	fmt.Fprintln(out, "Store the mnemonic securely. Anyone holding it controls the account.")
	return nil
}
