package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/overdraft"
)

func newFeesCommand() *cobra.Command {
	var repoDir string
	var asOfFlag string
	var showDays bool

	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Simulate overdraft fees from the stored credit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())

			asOf := time.Now().In(p.loc)
			if asOfFlag != "" {
				d, err := time.ParseInLocation("2006-01-02", asOfFlag, p.loc)
				if err != nil {
					return fmt.Errorf("parsing --as-of: %w", err)
				}
				asOf = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}

			s, err := p.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			all, err := s.ListTransactionsSince(ctx, time.Time{})
			if err != nil {
				return fmt.Errorf("listing transactions: %w", err)
			}
			var events []model.Event
			for _, txn := range all {
				if txn.Kind.IsCredit() {
					events = append(events, txn.Event())
				}
			}

			res := overdraft.Simulate(events, asOf)
			for _, w := range res.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %v\n", w)
			}
			if len(res.Days) == 0 {
				fmt.Println("No overdraft activity")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
			if showDays {
				fmt.Fprintln(w, "DATE\tBALANCE\tACCESS\tMAINTENANCE\t")
				for _, d := range res.Days {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", d.Date.Format("2006-01-02"),
						d.Balance.StringFixed(2), d.AccessFee.StringFixed(2), d.MaintenanceFee.StringFixed(2))
				}
				fmt.Fprintln(w, "\t\t\t\t")
			}
			fmt.Fprintln(w, "MONTH\tFEES\t")
			for _, m := range res.Months() {
				fmt.Fprintf(w, "%s\t%s\t\n", m, res.Fees[m].StringFixed(2))
			}
			fmt.Fprintf(w, "TOTAL\t%s\t\n", res.Total().StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("Outstanding %s %s as of %s\n", p.cfg.Ledger.Currency, res.Balance.StringFixed(2), asOf.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "simulate through the end of this day (YYYY-MM-DD, default now)")
	cmd.Flags().BoolVar(&showDays, "days", false, "print the daily balance and fees")

	return cmd
}
