package main

import (
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/spf13/cobra"
)

var invokeWorkspace string

var invokeCmd = &cobra.Command{
	Use:   "invoke <tool> <json-args>",
	Short: "Dispatch a single tool call through the daemon's tool registry",
	Long: `invoke is the generic escape hatch onto the full BuiltinToolRegistry
catalogue: prizm_file, prizm_document, prizm_todo, prizm_search,
prizm_knowledge, prizm_lock, prizm_schedule, prizm_cron, prizm_workflow,
prizm_terminal, and the background-task tools. Higher-level subcommands (doc,
todo, lock, workflow, cron) are thin wrappers over this same call.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawArgs := json.RawMessage(`{}`)
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("invalid JSON args: %s", args[1])
			}
			rawArgs = json.RawMessage(args[1])
		}
		return invokeAndPrint(args[0], rawArgs, invokeWorkspace)
	},
}

func init() {
	invokeCmd.Flags().StringVar(&invokeWorkspace, "workspace", "", "workspace view: main|session|run|workflow")
	rootCmd.AddCommand(invokeCmd)
}

// invokeAndPrint dials (or spawns) the scope's daemon, dispatches one
// tool call, and renders the {text,isError,structured_data} result.
func invokeAndPrint(toolName string, args json.RawMessage, workspace string) error {
	scopeRoot, err := resolveScope()
	if err != nil {
		return err
	}
	client, err := connectDaemon(scopeRoot)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := client.Invoke(&rpc.InvokeArgs{ToolName: toolName, Args: args, Workspace: workspace})
	if err != nil {
		return err
	}
	printResult(result, result.Text, result.IsError)
	if result.IsError {
		return errSilentNonZero
	}
	return nil
}
