package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-budget/internal/domain/export"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	var (
		format string
		pretty bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <statement>",
		Short: "Write the classified transactions as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			st, err := opts.loadStatement(cmd, args[0])
			if err != nil {
				return err
			}

			var body []byte
			switch f {
			case export.FormatJSON:
				body, err = export.JSON(st.txs, time.Now(), pretty)
			default:
				var s string
				s, err = export.CSV(st.txs)
				body = []byte(s)
			}
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}
			if _, err := w.Write(body); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(st.txs), output)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", string(export.FormatCSV), "csv or json")
	flags.BoolVar(&pretty, "pretty", false, "indent JSON output")
	flags.StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}
