package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-budget/internal/domain/budget"
	"github.com/FACorreiaa/smart-budget/pkg/money"
)

func newBudgetCommand(opts *globalOptions) *cobra.Command {
	var (
		income  string
		needs   float64
		wants   float64
		savings float64
	)

	cmd := &cobra.Command{
		Use:   "budget <statement>",
		Short: "Show the needs/wants/savings breakdown for a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratios := budget.Ratios{NeedsPercent: needs, WantsPercent: wants, SavingsPercent: savings}
			if err := ratios.Validate(); err != nil {
				return err
			}

			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			total := budget.IncomeOf(st.txs)
			if income != "" {
				if total, err = decimal.NewFromString(income); err != nil {
					return fmt.Errorf("invalid --income %q", income)
				}
			}

			b := budget.Calculate503020(total, st.txs, &ratios)
			printBreakdown(cmd, b, opts.currency)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&income, "income", "", "monthly income (default: sum of credits in the statement)")
	flags.Float64Var(&needs, "needs", budget.DefaultRatios.NeedsPercent, "needs percentage")
	flags.Float64Var(&wants, "wants", budget.DefaultRatios.WantsPercent, "wants percentage")
	flags.Float64Var(&savings, "savings", budget.DefaultRatios.SavingsPercent, "savings percentage")

	return cmd
}

func printBreakdown(cmd *cobra.Command, b budget.Breakdown, currency string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Income:   %s\n", money.Display(b.TotalIncome, currency))
	fmt.Fprintf(out, "Expenses: %s\n\n", money.Display(b.TotalExpenses, currency))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tTARGET\tACTUAL\t% OF INCOME\tSTATUS")
	for _, row := range []struct {
		name   string
		ratio  float64
		bucket budget.Bucket
	}{
		{"needs", b.Ratios.NeedsPercent, b.Needs},
		{"wants", b.Ratios.WantsPercent, b.Wants},
		{"savings", b.Ratios.SavingsPercent, b.Savings},
	} {
		fmt.Fprintf(w, "%s (%g%%)\t%s\t%s\t%.1f%%\t%s\n",
			row.name, row.ratio,
			money.Display(row.bucket.Target, currency),
			money.Display(row.bucket.Actual, currency),
			row.bucket.Percentage, row.bucket.Status)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nSavings rate: %.1f%%\n", b.SavingsRate)
}
