// Package commands implements the budgetctl command line.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-budget/pkg/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	offline  bool
	currency string
	verbose  bool
	envFile  string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Import bank statements and inspect a 50/30/20 budget offline",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.offline, "offline", false, "classify with keyword rules even when GEMINI_API_KEY is set")
	flags.StringVar(&opts.currency, "currency", "GBP", "currency used to display amounts")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log classifier activity to stderr")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")

	rootCmd.AddCommand(
		newImportCommand(opts),
		newBudgetCommand(opts),
		newTrendsCommand(opts),
		newCategoriesCommand(opts),
		newMonthlyCommand(opts),
		newExportCommand(opts),
		newSearchCommand(opts),
	)

	return rootCmd
}

func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *globalOptions) config() (*config.Config, error) {
	return config.Load(o.envFile)
}
