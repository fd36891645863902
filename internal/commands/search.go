package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-budget/internal/domain/transactions"
	"github.com/FACorreiaa/smart-budget/pkg/money"
)

// localUser owns every transaction indexed by the CLI.
var localUser = uuid.Nil

func newSearchCommand(opts *globalOptions) *cobra.Command {
	var searchOpts transactions.SearchOptions

	cmd := &cobra.Command{
		Use:   "search <statement> <query...>",
		Short: "Full-text search over a statement's transactions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			index, err := transactions.NewSearchIndex("")
			if err != nil {
				return err
			}
			defer index.Close()

			if err := index.Index(localUser, st.txs); err != nil {
				return fmt.Errorf("indexing: %w", err)
			}
			hits, err := index.Search(localUser, strings.Join(args[1:], " "), searchOpts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tDESCRIPTION\tAMOUNT\tCATEGORY")
			for _, h := range hits {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Date, h.Description, money.Display(h.Amount, opts.currency), h.Category)
			}
			return w.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&searchOpts.Category, "category", "", "only match this category")
	flags.IntVar(&searchOpts.Limit, "limit", 20, "maximum results")

	return cmd
}
