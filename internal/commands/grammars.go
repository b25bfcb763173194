package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/extract"
	"github.com/cleared-dev/tally/internal/model"
)

func newGrammarsCommand() *cobra.Command {
	var body string
	var timezone string

	cmd := &cobra.Command{
		Use:   "grammars",
		Short: "List message grammars in match order, or test one message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("loading timezone %q: %w", timezone, err)
			}
			ex := extract.Default(loc)

			if body == "" {
				for i, name := range ex.Names() {
					fmt.Printf("%2d  %s\n", i+1, name)
				}
				return nil
			}
			return printEvent(ex, body)
		},
	}

	cmd.Flags().StringVar(&body, "parse", "", "message body to run through the grammars")
	cmd.Flags().StringVar(&timezone, "timezone", "Africa/Nairobi", "time zone for times written in the message")

	return cmd
}

func printEvent(ex *extract.Extractor, body string) error {
	ev, reason := ex.Parse(body)
	switch e := ev.(type) {
	case model.StandardTransaction:
		fmt.Printf("standard %s %s %s %s (%s) at %s\n", e.Channel, e.ConfirmationCode, e.Direction,
			e.Amount.StringFixed(2), e.CounterpartyName, e.OccurredAt.Format(time.RFC3339))
	case model.CreditDrawdown:
		fmt.Printf("credit drawdown %s %s, access fee %s\n", e.ConfirmationCode, e.Amount.StringFixed(2), e.AccessFee.StringFixed(2))
	case model.CreditRepayment:
		fmt.Printf("credit repayment %s %s, fully paid %t\n", e.ConfirmationCode, e.Amount.StringFixed(2), e.FullyPaid)
	default:
		if reason != nil {
			return fmt.Errorf("unrecognized: %w", reason)
		}
		fmt.Println("unrecognized")
	}
	return nil
}
