package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/model"
)

func newCategorizeCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "categorize <txn-id> <category>",
		Short: "Set a transaction's category and remember it for the counterparty",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())

			cats, err := p.categories()
			if err != nil {
				return err
			}
			s, err := p.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			txn, err := s.GetTransaction(ctx, args[0])
			if err != nil {
				return fmt.Errorf("transaction %s: %w", args[0], err)
			}
			if err := cats.CheckTarget(args[1], txn.Direction); err != nil {
				return err
			}

			filled, err := categorize.New(s).Categorize(ctx, txn.ID, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Categorized %s as %s", txn.ID, args[1])
			if filled > 0 {
				fmt.Printf(" (%d more from %s)", filled, txn.CounterpartyName)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}

func newMapCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "map <counterparty> <SENT|RECEIVED> <category>",
		Short: "Remember a category for a counterparty and back-fill its transactions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())

			dir := model.Direction(strings.ToUpper(args[1]))
			if !dir.Valid() {
				return fmt.Errorf("direction must be %s or %s, got %q", model.DirectionSent, model.DirectionReceived, args[1])
			}
			cats, err := p.categories()
			if err != nil {
				return err
			}
			if err := cats.CheckTarget(args[2], dir); err != nil {
				return err
			}

			s, err := p.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			filled, err := categorize.New(s).SaveMapping(ctx, args[0], dir, args[2])
			if err != nil {
				return err
			}
			fmt.Printf("Mapped %s %s to %s, %d transactions updated\n", args[0], dir, args[2], filled)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}

func newUncategorizedCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "uncategorized",
		Short: "List transactions without a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())

			s, err := p.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			all, err := s.ListTransactionsSince(ctx, time.Time{})
			if err != nil {
				return fmt.Errorf("listing transactions: %w", err)
			}
			var pending []model.Transaction
			for _, txn := range all {
				if !txn.Categorized() {
					pending = append(pending, txn)
				}
			}
			if len(pending) == 0 {
				fmt.Println("All transactions are categorized")
				return nil
			}
			// Busiest counterparties first, so one map covers the most rows.
			counts := make(map[string]int)
			for _, txn := range pending {
				counts[txn.CounterpartyID]++
			}
			sort.SliceStable(pending, func(i, j int) bool {
				return counts[pending[i].CounterpartyID] > counts[pending[j].CounterpartyID]
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tDIRECTION\tAMOUNT\tCOUNTERPARTY\tNAME")
			for _, txn := range pending {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.ID, txn.OccurredAt.In(p.loc).Format("2006-01-02 15:04"), txn.Direction,
					txn.Amount.StringFixed(2), txn.CounterpartyID, txn.CounterpartyName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}
