package main

import "github.com/spf13/cobra"

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage todo lists via prizm_todo",
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every todo list in the scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_todo", mustJSON(map[string]any{"action": "list"}), "")
	},
}

var todoCreateListCmd = &cobra.Command{
	Use:   "create-list <title>",
	Args:  cobra.ExactArgs(1),
	Short: "Create a new todo list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_todo", mustJSON(map[string]any{"action": "create_list", "title": args[0]}), "")
	},
}

var todoDeleteListCmd = &cobra.Command{
	Use:   "delete-list <listId>",
	Args:  cobra.ExactArgs(1),
	Short: "Delete a todo list",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmDestructive("todo list " + args[0]) {
			return nil
		}
		return invokeAndPrint("prizm_todo", mustJSON(map[string]any{"action": "delete_list", "listId": args[0]}), "")
	},
}

var todoAddDescription string

var todoAddItemsCmd = &cobra.Command{
	Use:   "add-item <listId> <title>",
	Args:  cobra.ExactArgs(2),
	Short: "Add an item to a todo list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_todo", mustJSON(map[string]any{
			"action":      "add_items",
			"listId":      args[0],
			"title":       args[1],
			"description": todoAddDescription,
		}), "")
	},
}

var todoUpdateStatus string

var todoUpdateItemCmd = &cobra.Command{
	Use:   "update-item <listId> <itemId>",
	Args:  cobra.ExactArgs(2),
	Short: "Update a todo item's status (todo|doing|done)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_todo", mustJSON(map[string]any{
			"action": "update_item",
			"listId": args[0],
			"itemId": args[1],
			"status": todoUpdateStatus,
		}), "")
	},
}

var todoDeleteItemCmd = &cobra.Command{
	Use:   "delete-item <listId> <itemId>",
	Args:  cobra.ExactArgs(2),
	Short: "Delete a todo item",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_todo", mustJSON(map[string]any{
			"action": "delete_item",
			"listId": args[0],
			"itemId": args[1],
		}), "")
	},
}

func init() {
	todoAddItemsCmd.Flags().StringVar(&todoAddDescription, "description", "", "item description")
	todoUpdateItemCmd.Flags().StringVar(&todoUpdateStatus, "status", "todo", "new status: todo|doing|done")

	todoCmd.AddCommand(todoListCmd, todoCreateListCmd, todoDeleteListCmd, todoAddItemsCmd, todoUpdateItemCmd, todoDeleteItemCmd)
	rootCmd.AddCommand(todoCmd)
}
