package main

import (
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/ui"
	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:     "doc",
	Aliases: []string{"document"},
	Short:   "Read and edit documents via prizm_document",
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every document in the scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_document", mustJSON(map[string]any{"action": "list"}), "")
	},
}

var docReadCmd = &cobra.Command{
	Use:   "read <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Read a document's body by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocRead(args[0])
	},
}

// runDocRead fetches a document body and, on a TTY without --json,
// renders it as styled Markdown instead of raw source.
func runDocRead(id string) error {
	scopeRoot, err := resolveScope()
	if err != nil {
		return err
	}
	client, err := connectDaemon(scopeRoot)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := client.Invoke(&rpc.InvokeArgs{ToolName: "prizm_document", Args: mustJSON(map[string]any{
		"action": "read",
		"id":     id,
	})})
	if err != nil {
		return err
	}

	if !flagJSON && !result.IsError && ui.IsTerminal() {
		fmt.Print(ui.RenderMarkdown(result.Text))
		return nil
	}

	printResult(result, result.Text, result.IsError)
	if result.IsError {
		return errSilentNonZero
	}
	return nil
}

var (
	docCreateBody string
	docCreateTags []string
)

var docCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Args:  cobra.ExactArgs(1),
	Short: "Create a new document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_document", mustJSON(map[string]any{
			"action": "create",
			"title":  args[0],
			"body":   docCreateBody,
			"tags":   docCreateTags,
		}), "")
	},
}

var (
	docUpdateReason string
	docUpdateTitle  string
)

var docUpdateCmd = &cobra.Command{
	Use:   "update <id> <content>",
	Args:  cobra.ExactArgs(2),
	Short: "Update a document's content, optionally retitling it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeAndPrint("prizm_document", mustJSON(map[string]any{
			"action":       "update",
			"id":           args[0],
			"title":        docUpdateTitle,
			"content":      args[1],
			"changeReason": docUpdateReason,
		}), "")
	},
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Args:  cobra.ExactArgs(1),
	Short: "Delete a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmDestructive("document " + args[0]) {
			return nil
		}
		return invokeAndPrint("prizm_document", mustJSON(map[string]any{"action": "delete", "id": args[0]}), "")
	},
}

func init() {
	docCreateCmd.Flags().StringVar(&docCreateBody, "body", "", "initial document body")
	docCreateCmd.Flags().StringSliceVar(&docCreateTags, "tag", nil, "tag to attach (repeatable)")
	docUpdateCmd.Flags().StringVar(&docUpdateReason, "reason", "", "change reason recorded on the new version")
	docUpdateCmd.Flags().StringVar(&docUpdateTitle, "title", "", "new title; renames the underlying file, id unchanged")

	docCmd.AddCommand(docListCmd, docReadCmd, docCreateCmd, docUpdateCmd, docDeleteCmd)
	rootCmd.AddCommand(docCmd)
}

// mustJSON marshals v, which is always a literal map built in this file,
// so a marshal failure here would be a programming error, not a runtime
// one worth propagating through every subcommand's RunE.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mustJSON: %v", err))
	}
	return data
}
