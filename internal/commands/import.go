package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-budget/internal/domain/insights"
	"github.com/FACorreiaa/smart-budget/pkg/money"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "import <statement>",
		Short: "Parse and classify a CSV or XLSX statement and summarise it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			o := st.outcome
			fmt.Fprintf(out, "Format:   %s\n", o.Format)
			fmt.Fprintf(out, "Rows:     %d\n", o.TotalRows)
			fmt.Fprintf(out, "Imported: %d\n", len(o.Records))
			fmt.Fprintf(out, "Rejected: %d\n", len(o.Errors))

			if showErrors && len(o.Errors) > 0 {
				fmt.Fprintln(out, "\nRejected rows:")
				for _, msg := range o.ErrorMessages() {
					fmt.Fprintf(out, "  %s\n", msg)
				}
			}

			totals := insights.CategoryTotals(st.txs)
			if len(totals) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nSpending by category:")
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, t := range totals {
				fmt.Fprintf(w, "  %s\t%s\t%.1f%%\n", t.Category, money.Display(t.Total, opts.currency), t.Percentage)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&showErrors, "show-errors", false, "list every rejected row")

	return cmd
}
