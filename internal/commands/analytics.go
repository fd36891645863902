package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-budget/internal/domain/insights"
	"github.com/FACorreiaa/smart-budget/pkg/money"
)

func newTrendsCommand(opts *globalOptions) *cobra.Command {
	var groupBy string

	cmd := &cobra.Command{
		Use:   "trends <statement>",
		Short: "Show spending per day, week or month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := insights.ParseGroupBy(groupBy)
			if err != nil {
				return err
			}
			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tSPENT")
			for _, p := range insights.SpendingTrends(st.txs, g) {
				fmt.Fprintf(w, "%s\t%s\n", p.Period, money.Display(p.Amount, opts.currency))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&groupBy, "group-by", string(insights.GroupByMonth), "day, week or month")

	return cmd
}

func newCategoriesCommand(opts *globalOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "categories <statement>",
		Short: "Show the top spending categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tSPENT\tSHARE")
			for _, t := range insights.TopCategories(insights.CategoryTotals(st.txs), top) {
				fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", t.Category, money.Display(t.Total, opts.currency), t.Percentage)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "categories to list before grouping the rest as Other")

	return cmd
}

func newMonthlyCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "monthly <statement>",
		Short: "Compare income, expenses and savings per month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSES\tSAVINGS\tRATE")
			for _, m := range insights.MonthlyComparison(st.txs) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\n", m.Month,
					money.Display(m.Income, opts.currency),
					money.Display(m.Expenses, opts.currency),
					money.Display(m.Savings, opts.currency),
					m.SavingsRate)
			}
			return w.Flush()
		},
	}
}
