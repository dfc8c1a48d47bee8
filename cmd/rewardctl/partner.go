package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/artpar/rewardctl/app"
	"github.com/artpar/rewardctl/domain/partner"
	"github.com/artpar/rewardctl/ports"
	"github.com/spf13/cobra"
)

var partnerCmd = &cobra.Command{
	Use:   "partner",
	Short: "Create and query partners",
	Long: `Create and query Reward Chain partners.

Examples:
  rewardctl partner create --name "Acme" --country US --currency USD --liquidity 10000
  rewardctl partner list
  rewardctl partner list --include-disabled --limit 50
  rewardctl partner get 7`,
}

var partnerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a partner",
	RunE:  runPartnerCreate,
}

var partnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List partners",
	RunE:  runPartnerList,
}

var partnerGetCmd = &cobra.Command{
	Use:   "get <partner-id>",
	Short: "Show one partner",
	Args:  cobra.ExactArgs(1),
	RunE:  runPartnerGet,
}

var liquidityCmd = &cobra.Command{
	Use:   "liquidity",
	Short: "Manage partner liquidity",
}

var liquidityAddCmd = &cobra.Command{
	Use:   "add <partner-id>",
	Short: "Add liquidity to a partner",
	Args:  cobra.ExactArgs(1),
	RunE:  runLiquidityAdd,
}

var (
	createMsg    partner.CreatePartner
	liquidityMsg partner.AddPartnerLiquidity
	listDisabled bool
	listLimit    uint64
	listKey      string
	txMemo       string
	txGasLimit   uint64
)

func init() {
	rootCmd.AddCommand(partnerCmd)
	rootCmd.AddCommand(liquidityCmd)

	partnerCmd.AddCommand(partnerCreateCmd)
	partnerCmd.AddCommand(partnerListCmd)
	partnerCmd.AddCommand(partnerGetCmd)
	liquidityCmd.AddCommand(liquidityAddCmd)

	f := partnerCreateCmd.Flags()
	f.StringVar(&createMsg.Name, "name", "", "partner name (required)")
	f.StringVar(&createMsg.Category, "category", "", "partner category")
	f.StringVar(&createMsg.Country, "country", "", "country code (required)")
	f.StringVar(&createMsg.Currency, "currency", "", "settlement currency")
	f.StringVar(&createMsg.EarnCostPerPoint, "earn-cost", "", "cost per earned point")
	f.StringVar(&createMsg.BurnCostPerPoint, "burn-cost", "", "cost per burned point")
	f.StringVar(&createMsg.TotalLiquidity, "liquidity", "", "initial total liquidity")
	f.StringVar(&createMsg.Creator, "creator", "", "creator address (default: signer)")
	partnerCreateCmd.MarkFlagRequired("name")
	partnerCreateCmd.MarkFlagRequired("country")
	addTxFlags(partnerCreateCmd)

	partnerListCmd.Flags().BoolVar(&listDisabled, "include-disabled", false, "include disabled partners")
	partnerListCmd.Flags().Uint64Var(&listLimit, "limit", 0, "page size (default: server default)")
	partnerListCmd.Flags().StringVar(&listKey, "key", "", "pagination key from a previous page")

	f = liquidityAddCmd.Flags()
	f.StringVar(&liquidityMsg.Amount, "amount", "", "amount to add (required)")
	f.StringVar(&liquidityMsg.Currency, "currency", "", "currency of the amount")
	f.StringVar(&liquidityMsg.ExtWallet, "ext-wallet", "", "external wallet the funds come from")
	liquidityAddCmd.MarkFlagRequired("amount")
	addTxFlags(liquidityAddCmd)
}

func addTxFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&txMemo, "memo", "", "transaction memo")
	cmd.Flags().Uint64Var(&txGasLimit, "gas-limit", 0, "gas limit (default: from config)")
}

func txOptions() ports.TxOptions {
	return ports.TxOptions{Memo: txMemo, GasLimit: txGasLimit}
}

func runPartnerCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	out, err := a.Service.CreatePartner(cmd.Context(), createMsg, txOptions())
	if err != nil {
		return err
	}
	return printTx(cmd, "Partner created", out)
}

func runLiquidityAdd(cmd *cobra.Command, args []string) error {
	id, err := parsePartnerID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	msg := liquidityMsg
	msg.PartnerID = id
	out, err := a.Service.AddPartnerLiquidity(cmd.Context(), msg, txOptions())
	if err != nil {
		return err
	}
	return printTx(cmd, "Liquidity added", out)
}

func runPartnerList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	page, err := a.Service.ListPartners(cmd.Context(), partner.ListOptions{
		IncludeDisabled: listDisabled,
		Limit:           listLimit,
		Key:             listKey,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"partners": page.Partners,
			"nextKey":  page.NextKey,
			"total":    strconv.FormatUint(page.Total, 10),
		})
	}

	if len(page.Partners) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No partners found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCOUNTRY\tTOTAL\tAVAILABLE\tDISABLED")
	for _, p := range page.Partners {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			p.ID, p.Name, p.Category, p.Country, p.TotalLiquidity, p.AvailableLiquidity, p.Disabled)
	}
	w.Flush()

	if page.NextKey != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nMore results: --key %s\n", page.NextKey)
	}
	return nil
}

func runPartnerGet(cmd *cobra.Command, args []string) error {
	id, err := parsePartnerID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	p, err := a.Service.GetPartner(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), p)
}

func parsePartnerID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid partner id %q: must be a positive integer", s)
	}
	return id, nil
}

func printTx(cmd *cobra.Command, title string, out app.TxOutcome) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"txHash":    out.Tx.Hash,
			"height":    out.Tx.Height,
			"gasUsed":   out.Tx.GasUsed,
			"gasWanted": out.Tx.GasWanted,
			"createdId": out.CreatedID,
			"journalId": out.JournalID,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "  Tx hash:  %s\n", out.Tx.Hash)
	fmt.Fprintf(w, "  Height:   %d\n", out.Tx.Height)
	fmt.Fprintf(w, "  Gas used: %d / %d\n", out.Tx.GasUsed, out.Tx.GasWanted)
	if out.CreatedID != "" {
		fmt.Fprintf(w, "  ID:       %s\n", out.CreatedID)
	}
	if out.JournalID != "" {
		fmt.Fprintf(w, "  Journal:  %s\n", out.JournalID)
	}
	return nil
}
