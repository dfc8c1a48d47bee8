package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/artpar/rewardctl/app"
	"github.com/artpar/rewardctl/domain/partner"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the end-to-end partner flow against a chain",
	Long: `Run the full partner flow against the configured chain:

  1. create a partner
  2. list partners
  3. fetch the new partner
  4. add liquidity to it
  5. swap points to tokens

Requires a funded wallet. Each step waits --wait for the chain to index the
previous transaction.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var demoWait time.Duration

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().DurationVar(&demoWait, "wait", 2*time.Second, "pause between steps")
}

const demoExtWallet = "0x1234567890123456789012345678901234567890"

func runDemo(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	svc := a.Service
	if svc.Address() == "" {
		return fmt.Errorf("demo: %w", app.ErrNoSigner)
	}
	fmt.Fprintf(out, "Account: %s\n\n", svc.Address())

	step(out, 1, "Creating partner")
	created, err := svc.CreatePartner(ctx, partner.CreatePartner{
		Name:             "Example Partner",
		Category:         "Retail",
		Country:          "US",
		Currency:         "USD",
		EarnCostPerPoint: "1.0",
		BurnCostPerPoint: "0.9",
		TotalLiquidity:   "10000",
	}, txOptions())
	if err != nil {
		return fmt.Errorf("create partner: %w", err)
	}
	fmt.Fprintf(out, "  tx %s at height %d\n", created.Tx.Hash, created.Tx.Height)
	if err := pause(ctx, demoWait); err != nil {
		return err
	}

	step(out, 2, "Listing partners")
	page, err := svc.ListPartners(ctx, partner.ListOptions{})
	if err != nil {
		return fmt.Errorf("list partners: %w", err)
	}
	fmt.Fprintf(out, "  %d partners\n", len(page.Partners))

	id, err := demoPartnerID(created.CreatedID, page)
	if err != nil {
		return err
	}

	step(out, 3, fmt.Sprintf("Fetching partner %d", id))
	p, err := svc.GetPartner(ctx, id)
	if err != nil {
		return fmt.Errorf("get partner: %w", err)
	}
	fmt.Fprintf(out, "  %s (%s), liquidity %s\n", p.Name, p.Country, p.TotalLiquidity)

	step(out, 4, "Adding liquidity")
	added, err := svc.AddPartnerLiquidity(ctx, partner.AddPartnerLiquidity{
		PartnerID: id,
		Amount:    "1000",
		Currency:  "USD",
		ExtWallet: demoExtWallet,
	}, txOptions())
	if err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	fmt.Fprintf(out, "  tx %s at height %d\n", added.Tx.Hash, added.Tx.Height)
	if err := pause(ctx, demoWait); err != nil {
		return err
	}

	step(out, 5, "Swapping points to tokens")
	swapped, err := svc.Swap(ctx, partner.Swap{
		PartnerID: id,
		Route:     partner.RoutePointsToToken,
		Points:    "100",
	}, txOptions())
	if err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	fmt.Fprintf(out, "  tx %s at height %d\n\n", swapped.Tx.Hash, swapped.Tx.Height)

	fmt.Fprintln(out, "Demo complete.")
	return nil
}

// demoPartnerID prefers the id reported by the create transaction and falls
// back to the first listed partner.
func demoPartnerID(createdID string, page partner.ListPage) (uint64, error) {
	if createdID != "" {
		if id, err := strconv.ParseUint(createdID, 10, 64); err == nil {
			return id, nil
		}
	}
	if len(page.Partners) == 0 {
		return 0, errors.New("no partner id in the create result and no partners listed")
	}
	return page.Partners[0].ID, nil
}

func step(w io.Writer, n int, title string) {
	fmt.Fprintf(w, "[%d/5] %s\n", n, title)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
