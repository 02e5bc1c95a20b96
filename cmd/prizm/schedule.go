package main

import "github.com/spf13/cobra"

var schedCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage calendar and reminder items via prizm_schedule",
}

var schedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedule items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_schedule", mustJSON(map[string]any{"action": "list"}), "")
	},
}

var schedReadCmd = &cobra.Command{
	Use:   "read <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Show a single schedule item",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_schedule", mustJSON(map[string]any{"action": "read", "id": args[0]}), "")
	},
}

var (
	schedType        string
	schedDescription string
	schedStart       int64
	schedEnd         int64
	schedAllDay      bool
)

var schedCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Args:  cobra.ExactArgs(1),
	Short: "Create a schedule item with explicit start/end times",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_schedule", mustJSON(map[string]any{
			"action":      "create",
			"title":       args[0],
			"type":        schedType,
			"description": schedDescription,
			"startTime":   schedStart,
			"endTime":     schedEnd,
			"allDay":      schedAllDay,
		}), "")
	},
}

var schedCreateFromTextCmd = &cobra.Command{
	Use:   "create-from-text <title> <when>",
	Args:  cobra.ExactArgs(2),
	Short: "Create a schedule item from a natural-language time expression",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_schedule", mustJSON(map[string]any{
			"action": "create_from_text",
			"title":  args[0],
			"when":   args[1],
			"type":   schedType,
		}), "")
	},
}

var (
	schedUpdateTitle  string
	schedUpdateStatus string
)

var schedUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Update a schedule item",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_schedule", mustJSON(map[string]any{
			"action":      "update",
			"id":          args[0],
			"title":       schedUpdateTitle,
			"description": schedDescription,
			"startTime":   schedStart,
			"endTime":     schedEnd,
			"status":      schedUpdateStatus,
		}), "")
	},
}

var schedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Delete a schedule item",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmDestructive("schedule item " + args[0]) {
			return nil
		}
		return invokeAndPrint("prizm_schedule", mustJSON(map[string]any{"action": "delete", "id": args[0]}), "")
	},
}

func init() {
	for _, c := range []*cobra.Command{schedCreateCmd, schedCreateFromTextCmd} {
		c.Flags().StringVar(&schedType, "type", "event", "item type: event|reminder|deadline")
	}
	schedCreateCmd.Flags().StringVar(&schedDescription, "description", "", "item description")
	schedCreateCmd.Flags().Int64Var(&schedStart, "start", 0, "start time as a unix timestamp")
	schedCreateCmd.Flags().Int64Var(&schedEnd, "end", 0, "end time as a unix timestamp")
	schedCreateCmd.Flags().BoolVar(&schedAllDay, "all-day", false, "mark the item as an all-day event")

	schedUpdateCmd.Flags().StringVar(&schedUpdateTitle, "title", "", "new title")
	schedUpdateCmd.Flags().StringVar(&schedDescription, "description", "", "new description")
	schedUpdateCmd.Flags().Int64Var(&schedStart, "start", 0, "new start time as a unix timestamp")
	schedUpdateCmd.Flags().Int64Var(&schedEnd, "end", 0, "new end time as a unix timestamp")
	schedUpdateCmd.Flags().StringVar(&schedUpdateStatus, "status", "", "new status")

	schedCmd.AddCommand(schedListCmd, schedReadCmd, schedCreateCmd, schedCreateFromTextCmd, schedUpdateCmd, schedDeleteCmd)
	rootCmd.AddCommand(schedCmd)
}
