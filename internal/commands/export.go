package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/ledger"
)

func newExportCommand() *cobra.Command {
	var repoDir string
	var sinceFlag string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write monthly ledger CSV files to exports/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())

			// Whole months only: each export file is rewritten from scratch.
			var since time.Time
			if sinceFlag != "" {
				since, err = time.ParseInLocation("2006-01", sinceFlag, p.loc)
				if err != nil {
					return fmt.Errorf("parsing --since: %w", err)
				}
			}

			cats, err := p.categories()
			if err != nil {
				return err
			}
			s, err := p.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			txns, err := s.ListTransactionsSince(ctx, since)
			if err != nil {
				return fmt.Errorf("listing transactions: %w", err)
			}
			for i := range txns {
				txns[i].OccurredAt = txns[i].OccurredAt.In(p.loc)
			}

			for _, verr := range ledger.ValidateAll(txns, cats) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", verr)
			}

			paths, err := ledger.NewExporter(p.root).Export(txns)
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			for _, path := range paths {
				fmt.Println(path)
			}
			fmt.Printf("Exported %d transactions in %d files\n", len(txns), len(paths))
			return p.commit(fmt.Sprintf("export: %d transactions in %d months", len(txns), len(paths)))
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	cmd.Flags().StringVar(&sinceFlag, "since", "", "first month to export (YYYY-MM, default all)")

	return cmd
}
