package main

import (
	"fmt"

	"github.com/artpar/rewardctl/domain/partner"
	"github.com/spf13/cobra"
)

var swapCmd = &cobra.Command{
	Use:   "swap <partner-id>",
	Short: "Swap partner points and chain tokens",
	Long: `Swap partner points for chain tokens, or back.

Routes:
  points_to_token   burn points, receive tokens
  token_to_points   spend tokens, receive points

Examples:
  rewardctl swap 7 --route points_to_token --points 100
  rewardctl swap 7 --route token_to_points --points 25 --memo "refund"`,
	Args: cobra.ExactArgs(1),
	RunE: runSwap,
}

var swapMsg partner.Swap

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapMsg.Route, "route", partner.RoutePointsToToken, "points_to_token or token_to_points")
	swapCmd.Flags().StringVar(&swapMsg.Points, "points", "", "number of points (required)")
	swapCmd.MarkFlagRequired("points")
	addTxFlags(swapCmd)
}

func runSwap(cmd *cobra.Command, args []string) error {
	id, err := parsePartnerID(args[0])
	if err != nil {
		return err
	}

	if !partner.ValidRoute(swapMsg.Route) {
		return fmt.Errorf("invalid route %q: use %s or %s", swapMsg.Route, partner.RoutePointsToToken, partner.RouteTokenToPoints)
	}
	msg := swapMsg
	msg.PartnerID = id

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	out, err := a.Service.Swap(cmd.Context(), msg, txOptions())
	if err != nil {
		return err
	}
	return printTx(cmd, "Swap completed", out)
}
