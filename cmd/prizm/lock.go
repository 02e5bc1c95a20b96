package main

import (
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/ui"
	"github.com/spf13/cobra"
)

var lockReason string

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect and manage resource locks via prizm_lock",
}

func lockAction(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <resourceType> <resourceId>",
		Args:  cobra.ExactArgs(2),
		Short: action + " a resource lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			if action == "status" {
				return runLockStatus(args[0], args[1])
			}
			return invokeAndPrint("prizm_lock", mustJSON(map[string]any{
				"action":       action,
				"resourceType": args[0],
				"resourceId":   args[1],
				"reason":       lockReason,
			}), "")
		},
	}
}

// runLockStatus renders a held lock as a table when attached to a TTY
// without --json, otherwise falling back to the plain-text rendering.
func runLockStatus(resourceType, resourceID string) error {
	scopeRoot, err := resolveScope()
	if err != nil {
		return err
	}
	client, err := connectDaemon(scopeRoot)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := client.Invoke(&rpc.InvokeArgs{ToolName: "prizm_lock", Args: mustJSON(map[string]any{
		"action":       "status",
		"resourceType": resourceType,
		"resourceId":   resourceID,
	})})
	if err != nil {
		return err
	}

	if !flagJSON && !result.IsError && result.StructuredData != "" && ui.IsTerminal() {
		var st struct {
			ResourceType string `json:"resourceType"`
			ResourceID   string `json:"resourceId"`
			HolderID     string `json:"holderId"`
			FenceToken   uint64 `json:"fenceToken"`
			AcquiredAt   string `json:"acquiredAt"`
		}
		if json.Unmarshal([]byte(result.StructuredData), &st) == nil {
			fmt.Println(ui.LockTable(ui.GetWidth(), st.ResourceType, st.ResourceID, st.HolderID, flagActor, st.FenceToken, st.AcquiredAt).String())
			return nil
		}
	}

	printResult(result, result.Text, result.IsError)
	if result.IsError {
		return errSilentNonZero
	}
	return nil
}

func init() {
	checkout := lockAction("checkout")
	checkout.Flags().StringVar(&lockReason, "reason", "", "reason recorded on the lock")

	lockCmd.AddCommand(
		checkout,
		lockAction("checkin"),
		lockAction("claim"),
		lockAction("set_active"),
		lockAction("release"),
		lockAction("status"),
	)
	rootCmd.AddCommand(lockCmd)
}
