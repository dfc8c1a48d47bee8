package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/artpar/rewardctl/ports"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect locally recorded transactions",
	Long: `Inspect the local journal of transactions submitted by this client.

Examples:
  rewardctl journal list
  rewardctl journal list --status failed
  rewardctl journal list --type rewardchain.rewardchain.MsgSwap --limit 10`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	RunE:  runJournalList,
}

var journalFilter ports.JournalFilter

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)

	journalListCmd.Flags().StringVar(&journalFilter.TypeURL, "type", "", "filter by message type")
	journalListCmd.Flags().StringVar(&journalFilter.Status, "status", "", "filter by status (committed, failed)")
	journalListCmd.Flags().IntVar(&journalFilter.Limit, "limit", 20, "maximum entries")
	journalListCmd.Flags().IntVar(&journalFilter.Offset, "offset", 0, "entries to skip")
}

func runJournalList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if a.DB == nil {
		return fmt.Errorf("no journal database (database.dsn is %q)", a.Config.Database.DSN)
	}

	f := journalFilter
	if f.TypeURL != "" && !strings.HasPrefix(f.TypeURL, "/") {
		f.TypeURL = "/" + f.TypeURL
	}
	entries, total, err := a.Service.Journal(cmd.Context(), f)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"entries": entries, "total": total})
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No transactions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tSTATUS\tHEIGHT\tTX HASH\tCREATED")
	for _, e := range entries {
		typ := e.TypeURL[strings.LastIndex(e.TypeURL, ".")+1:]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), typ, e.Status, e.Height, e.TxHash, e.CreatedID)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d entries\n", len(entries), total)
	return nil
}
