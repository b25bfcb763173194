package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/extract"
	"github.com/cleared-dev/tally/internal/ingest"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/source"
	"github.com/cleared-dev/tally/internal/synclog"
)

func newSyncCommand() *cobra.Command {
	var dryRun bool
	var full bool
	var repoDir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ingest message exports from import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())
			if dryRun {
				return runDryRun(ctx, p, full)
			}
			_, err = runSync(ctx, p, "sync", full)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be ingested without writing")
	cmd.Flags().BoolVar(&full, "full", false, "also rescan files already moved to import/processed/")
	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")

	return cmd
}

// listPending returns the import files and every message they hold. The
// processed-message ledger, not the file's age, decides what is new, so a
// late export holding older messages is still ingested. With full the
// archive in import/processed/ is read as well.
func listPending(ctx context.Context, p *project, full bool) ([]source.FileInfo, []model.RawMessage, error) {
	var opts []source.DirOption
	if full {
		opts = append(opts, source.IncludeProcessed())
	}
	dir := source.NewDir(p.root, opts...)
	files, err := dir.Files()
	if err != nil {
		return nil, nil, err
	}
	msgs, err := dir.ListMessages(ctx, time.Time{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing messages: %w", err)
	}
	return files, msgs, nil
}

func runSync(ctx context.Context, p *project, trigger string, full bool) (synclog.Entry, error) {
	entry := synclog.Entry{Timestamp: time.Now(), Trigger: trigger}

	res, err := syncOnce(ctx, p, full)
	entry.Scanned = res.Scanned
	entry.Skipped = res.Skipped
	entry.Unrecognized = res.Unrecognized
	entry.NewTransactions = res.NewTransactions
	entry.CreditEvents = res.CreditEvents
	entry.FeeMonths = res.FeeMonths
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Cursor = res.Latest
	}

	if logErr := synclog.Append(p.root, []synclog.Entry{entry}); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write sync log: %v\n", logErr)
	}
	if err != nil {
		return entry, fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Scanned %d messages: %d new transactions, %d unrecognized, %d already processed",
		res.Scanned, res.NewTransactions, res.Unrecognized, res.Skipped)
	if res.CreditEvents > 0 {
		fmt.Printf(", %d credit events, %d fee months", res.CreditEvents, res.FeeMonths)
	}
	fmt.Println()

	msg := fmt.Sprintf("sync: %d new transactions from %d messages", res.NewTransactions, res.Scanned)
	if err := p.commit(msg); err != nil {
		return entry, err
	}
	return entry, nil
}

func syncOnce(ctx context.Context, p *project, full bool) (ingest.Result, error) {
	files, msgs, err := listPending(ctx, p, full)
	if err != nil {
		return ingest.Result{}, err
	}

	s, err := p.openStore()
	if err != nil {
		return ingest.Result{}, err
	}
	defer s.Close()

	pipeline := ingest.New(s, p.loc,
		ingest.WithRules(rules.Open(p.root)),
		ingest.WithFeeCategory(p.cfg.Fees.Category),
	)
	res, err := pipeline.Run(ctx, msgs)
	if err != nil {
		return res, err
	}

	// Files move only after every message they hold went through Run.
	for _, f := range files {
		if f.Processed {
			continue
		}
		if err := source.MarkProcessed(p.root, f.Name); err != nil {
			return res, err
		}
	}
	return res, nil
}

func runDryRun(ctx context.Context, p *project, full bool) error {
	_, msgs, err := listPending(ctx, p, full)
	if err != nil {
		return err
	}

	previews := ingest.PreviewMessages(extract.Default(p.loc), msgs)
	recognized := 0
	for _, pv := range previews {
		if pv.TxnID == "" {
			reason := "no grammar matched"
			if pv.Reason != nil {
				reason = pv.Reason.Error()
			}
			fmt.Printf("%-24s unrecognized (%s)\n", pv.ExternalID, reason)
			continue
		}
		recognized++
		fmt.Printf("%-24s %-17s %-12s %-8s %s\n", pv.ExternalID, pv.Kind, pv.TxnID, pv.Direction, pv.Amount)
	}
	fmt.Printf("Dry run: %d of %d messages recognized\n", recognized, len(previews))

	entry := synclog.Entry{Timestamp: time.Now(), Trigger: "dry-run", Scanned: len(previews), Unrecognized: len(previews) - recognized}
	if err := synclog.Append(p.root, []synclog.Entry{entry}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write sync log: %v\n", err)
	}
	return nil
}
