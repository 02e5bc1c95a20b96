package main

import (
	"fmt"

	"github.com/prizm-dev/prizm/internal/ui"
)

// confirmDestructive guards a delete subcommand behind an interactive
// yes/no prompt unless --yes was passed or output is non-interactive
// (scripts, CI, --json), in which case it proceeds without asking.
func confirmDestructive(what string) bool {
	if flagYes || flagJSON || !ui.IsTerminal() {
		return true
	}
	return ui.PromptYesNo(fmt.Sprintf("Delete %s? This cannot be undone.", what), false)
}

var flagYes bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt on destructive commands")
}
