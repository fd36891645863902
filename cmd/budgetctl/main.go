// Command budgetctl works with bank statements offline: import, budget,
// analytics, export and search without a database.
package main

import (
	"os"

	"github.com/FACorreiaa/smart-budget/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
