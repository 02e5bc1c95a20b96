package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage recurring workflow triggers via prizm_cron",
}

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cron jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{"action": "list"}), "")
	},
}

var cronReadCmd = &cobra.Command{
	Use:   "read <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Show a single cron job",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{"action": "read", "id": args[0]}), "")
	},
}

var (
	cronWorkflow string
	cronArgsJSON string
	cronEnabled  bool
)

var cronCreateCmd = &cobra.Command{
	Use:   "create <name> <expression>",
	Args:  cobra.ExactArgs(2),
	Short: "Create a cron job binding a schedule to a workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		wfArgs := map[string]any{}
		if cronArgsJSON != "" {
			if err := json.Unmarshal([]byte(cronArgsJSON), &wfArgs); err != nil {
				return err
			}
		}
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{
			"action":       "create",
			"name":         args[0],
			"expression":   args[1],
			"workflowName": cronWorkflow,
			"workflowArgs": wfArgs,
			"enabled":      cronEnabled,
		}), "")
	},
}

var (
	cronUpdateName       string
	cronUpdateExpression string
)

var cronUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Update a cron job's name, schedule, or bound workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{
			"action":       "update",
			"id":           args[0],
			"name":         cronUpdateName,
			"expression":   cronUpdateExpression,
			"workflowName": cronWorkflow,
		}), "")
	},
}

var cronPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Pause a cron job without deleting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{"action": "pause", "id": args[0]}), "")
	},
}

var cronResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Resume a paused cron job",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{"action": "resume", "id": args[0]}), "")
	},
}

var cronDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Delete a cron job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmDestructive("cron job " + args[0]) {
			return nil
		}
		return invokeAndPrint("prizm_cron", mustJSON(map[string]any{"action": "delete", "id": args[0]}), "")
	},
}

func init() {
	cronCreateCmd.Flags().StringVar(&cronWorkflow, "workflow", "", "workflow name to run on each fire")
	cronCreateCmd.Flags().StringVar(&cronArgsJSON, "args", "", "workflow input args as a JSON object")
	cronCreateCmd.Flags().BoolVar(&cronEnabled, "enabled", true, "start the job enabled")

	cronUpdateCmd.Flags().StringVar(&cronUpdateName, "name", "", "new name")
	cronUpdateCmd.Flags().StringVar(&cronUpdateExpression, "expression", "", "new five-field cron expression")
	cronUpdateCmd.Flags().StringVar(&cronWorkflow, "workflow", "", "new bound workflow name")

	cronCmd.AddCommand(cronListCmd, cronReadCmd, cronCreateCmd, cronUpdateCmd, cronPauseCmd, cronResumeCmd, cronDeleteCmd)
	rootCmd.AddCommand(cronCmd)
}
