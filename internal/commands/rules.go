package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
)

func newRulesCommand() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage automation rules",
	}
	rulesCmd.AddCommand(
		newRulesListCommand(),
		newRulesAddCommand(),
		newRulesToggleCommand(),
		newRulesDeleteCommand(),
		newRulesApplyCommand(),
	)
	return rulesCmd
}

func newRulesListCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			list, err := rules.Open(p.root).ListRules()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No rules")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tTARGET\tENABLED\tCONDITIONS")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
					r.ID, r.Name, r.AppliesTo, r.TargetCategoryID, r.Enabled, formatConditions(r.Conditions))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}

func newRulesAddCommand() *cobra.Command {
	var repoDir string
	var name string
	var appliesTo string
	var target string
	var conditions []string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an automation rule",
		Example: `  tally rules add --name "Late night fares" --type EXPENSE --target transport \
    --when TIME:BETWEEN:22:6 --when AMOUNT:LESS_THAN:500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}

			r := model.AutomationRule{
				Name:             name,
				AppliesTo:        model.RuleType(strings.ToUpper(appliesTo)),
				TargetCategoryID: target,
				Enabled:          !disabled,
			}
			for _, c := range conditions {
				cond, err := parseCondition(c)
				if err != nil {
					return err
				}
				r.Conditions = append(r.Conditions, cond)
			}
			if err := rules.Validate(r); err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			cats, err := p.categories()
			if err != nil {
				return err
			}
			if err := cats.CheckTarget(target, ruleDirection(r.AppliesTo)); err != nil {
				return err
			}

			saved, err := rules.Open(p.root).SaveRule(r)
			if err != nil {
				return err
			}
			fmt.Printf("Added rule %s (%s)\n", saved.ID, saved.Name)
			return p.commit(fmt.Sprintf("rules: Add %s", saved.Name))
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	cmd.Flags().StringVar(&name, "name", "", "rule name (required)")
	cmd.Flags().StringVar(&appliesTo, "type", "EXPENSE", "EXPENSE or INCOME")
	cmd.Flags().StringVar(&target, "target", "", "category assigned on match (required)")
	cmd.Flags().StringArrayVar(&conditions, "when", nil, "condition FIELD:OPERATOR:VALUE[:UPPER], repeatable")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "save the rule disabled")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func newRulesToggleCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "toggle <rule-id>",
		Short: "Enable or disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			r, err := rules.Open(p.root).ToggleRule(args[0])
			if err != nil {
				return err
			}
			state, verb := "disabled", "Disable"
			if r.Enabled {
				state, verb = "enabled", "Enable"
			}
			fmt.Printf("Rule %s %s\n", r.ID, state)
			return p.commit(fmt.Sprintf("rules: %s %s", verb, r.Name))
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}

func newRulesDeleteCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			if err := rules.Open(p.root).DeleteRule(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted rule %s\n", args[0])
			return p.commit("rules: Delete " + args[0])
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}

func newRulesApplyCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "apply <rule-id>",
		Short: "Apply a rule to every stored transaction it matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(repoDir)
			if err != nil {
				return err
			}
			ctx := p.context(cmd.Context())

			r, err := rules.Open(p.root).GetRule(args[0])
			if err != nil {
				return err
			}
			s, err := p.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := rules.NewEngine(p.loc).ApplyToExisting(ctx, s, r)
			if err != nil {
				return err
			}
			fmt.Printf("Rule %s matched %d transactions\n", r.ID, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	return cmd
}

// parseCondition reads FIELD:OPERATOR:VALUE[:UPPER]. DESCRIPTION values may
// contain colons; everything after the operator is the value.
func parseCondition(s string) (model.Condition, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return model.Condition{}, fmt.Errorf("condition %q: want FIELD:OPERATOR:VALUE", s)
	}
	c := model.Condition{
		Field:    model.ConditionField(strings.ToUpper(parts[0])),
		Operator: model.ConditionOperator(strings.ToUpper(parts[1])),
		Value:    parts[2],
	}
	if c.Operator == model.OpBetween {
		lo, hi, ok := strings.Cut(parts[2], ":")
		if !ok {
			return model.Condition{}, fmt.Errorf("condition %q: BETWEEN needs VALUE:UPPER", s)
		}
		c.Value, c.UpperValue = lo, hi
	}
	return c, nil
}

func formatConditions(conds []model.Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		s := fmt.Sprintf("%s %s %s", c.Field, c.Operator, c.Value)
		if c.Operator == model.OpBetween {
			s += ".." + c.UpperValue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND ")
}

func ruleDirection(t model.RuleType) model.Direction {
	if t == model.RuleTypeIncome {
		return model.DirectionReceived
	}
	return model.DirectionSent
}
