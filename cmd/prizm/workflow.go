package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/ui"
	"github.com/spf13/cobra"
)

var wfCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run and inspect workflow runs via prizm_workflow",
}

var wfRunArgsJSON string

var wfRunCmd = &cobra.Command{
	Use:   "run <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Start a workflow run, blocking until it completes or pauses for approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		wfArgs := map[string]any{}
		if wfRunArgsJSON != "" {
			if err := json.Unmarshal([]byte(wfRunArgsJSON), &wfArgs); err != nil {
				return err
			}
		}
		return runWorkflow(args[0], wfArgs)
	},
}

// runWorkflow starts a run and, when it pauses at an approve gate on an
// interactive terminal, prompts for the decision and resumes in place —
// the same gate a UI would drive through prizm_workflow.resume with the
// printed token.
func runWorkflow(name string, wfArgs map[string]any) error {
	scopeRoot, err := resolveScope()
	if err != nil {
		return err
	}
	client, err := connectDaemon(scopeRoot)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := client.Invoke(&rpc.InvokeArgs{ToolName: "prizm_workflow", Args: mustJSON(map[string]any{
		"action": "run",
		"name":   name,
		"args":   wfArgs,
	})})
	if err != nil {
		return err
	}

	for !flagJSON && !result.IsError && ui.IsTerminal() {
		var run struct {
			RunID       string `json:"runId"`
			Status      string `json:"status"`
			ResumeToken string `json:"resumeToken"`
		}
		if json.Unmarshal([]byte(result.StructuredData), &run) != nil || run.Status != "awaiting-approval" {
			break
		}

		approved := true
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("Run %s is waiting for approval", run.RunID)).
			Affirmative("Approve").
			Negative("Deny").
			Value(&approved)
		if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
			break
		}

		result, err = client.Invoke(&rpc.InvokeArgs{ToolName: "prizm_workflow", Args: mustJSON(map[string]any{
			"action":   "resume",
			"name":     name,
			"runId":    run.RunID,
			"token":    run.ResumeToken,
			"approved": approved,
		})})
		if err != nil {
			return err
		}
	}

	printResult(result, result.Text, result.IsError)
	if result.IsError {
		return errSilentNonZero
	}
	return nil
}

var wfResumeApproved bool

var wfResumeCmd = &cobra.Command{
	Use:   "resume <name> <runId> <token>",
	Args:  cobra.ExactArgs(3),
	Short: "Resume a run suspended at an approve step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{
			"action":   "resume",
			"name":     args[0],
			"runId":    args[1],
			"token":    args[2],
			"approved": wfResumeApproved,
		}), "")
	},
}

var wfStatusCmd = &cobra.Command{
	Use:   "status <name> <runId>",
	Args:  cobra.ExactArgs(2),
	Short: "Show a single run's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{
			"action": "status",
			"name":   args[0],
			"runId":  args[1],
		}), "")
	},
}

var wfListCmd = &cobra.Command{
	Use:   "list [name]",
	Args:  cobra.MaximumNArgs(1),
	Short: "List runs, optionally filtered to one workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{"action": "list", "name": name}), "")
	},
}

var wfCancelCmd = &cobra.Command{
	Use:   "cancel <name> <runId>",
	Args:  cobra.ExactArgs(2),
	Short: "Cancel a running workflow run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{
			"action": "cancel",
			"name":   args[0],
			"runId":  args[1],
		}), "")
	},
}

var wfListDefsCmd = &cobra.Command{
	Use:   "list-defs",
	Short: "List registered workflow definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{"action": "list_defs"}), "")
	},
}

var wfGetDefCmd = &cobra.Command{
	Use:   "get-def <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Print a workflow definition's YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{"action": "get_def", "name": args[0]}), "")
	},
}

var wfRegisterCmd = &cobra.Command{
	Use:   "register <yamlFile>",
	Args:  cobra.ExactArgs(1),
	Short: "Register a workflow definition from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readFile(args[0])
		if err != nil {
			return err
		}
		return invokeAndPrint("prizm_workflow", mustJSON(map[string]any{"action": "register", "def": raw}), "")
	},
}

func init() {
	wfRunCmd.Flags().StringVar(&wfRunArgsJSON, "args", "", "workflow input args as a JSON object")
	wfResumeCmd.Flags().BoolVar(&wfResumeApproved, "approved", true, "whether the approval gate is approved")

	wfCmd.AddCommand(wfRunCmd, wfResumeCmd, wfStatusCmd, wfListCmd, wfCancelCmd, wfListDefsCmd, wfGetDefCmd, wfRegisterCmd)
	rootCmd.AddCommand(wfCmd)
}
