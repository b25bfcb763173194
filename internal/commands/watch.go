package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var schedule string
	var repoDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run sync on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			if schedule == "" {
				schedule = p.cfg.Sync.Schedule
			}
			ctx, stop := signal.NotifyContext(p.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, p, schedule)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (defaults to sync.schedule in tally.yaml)")
	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")

	return cmd
}

func runWatch(ctx context.Context, p *project, schedule string) error {
	c := cron.New(
		cron.WithLocation(p.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc(schedule, func() {
		// Failures are in the sync log; keep watching.
		if _, err := runSync(ctx, p, "watch", false); err != nil {
			p.log.Error().Err(err).Msg("scheduled sync failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	p.log.Info().Str("schedule", schedule).Str("timezone", p.loc.String()).Msg("watching import directory")

	<-ctx.Done()
	<-c.Stop().Done()
	p.log.Info().Msg("watch stopped")
	return nil
}
