package main

import (
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/ui"
	"github.com/spf13/cobra"
)

var (
	searchFuzzy bool
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Args:  cobra.ExactArgs(1),
	Short: "Find documents by title or content via prizm_search",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(args[0])
	},
}

// runSearch dispatches prizm_search and, on a TTY with --json unset,
// renders the structured_data hits as a table instead of the raw
// newline-separated path list the daemon sends for scripting.
func runSearch(query string) error {
	scopeRoot, err := resolveScope()
	if err != nil {
		return err
	}
	client, err := connectDaemon(scopeRoot)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := client.Invoke(&rpc.InvokeArgs{ToolName: "prizm_search", Args: mustJSON(map[string]any{
		"action": "find",
		"query":  query,
		"fuzzy":  searchFuzzy,
		"limit":  searchLimit,
	})})
	if err != nil {
		return err
	}

	if !flagJSON && !result.IsError && ui.IsTerminal() {
		var rows []struct {
			Path  string `json:"path"`
			Score int    `json:"score"`
			Via   string `json:"via"`
		}
		if json.Unmarshal([]byte(result.StructuredData), &rows) == nil && len(rows) > 0 {
			hits := make([]ui.SearchHit, len(rows))
			for i, row := range rows {
				hits[i] = ui.SearchHit{Path: row.Path, Score: row.Score, Via: row.Via}
			}
			fmt.Println(ui.NewSearchTable(ui.GetWidth(), hits).String())
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
	searchCmd.Flags().BoolVar(&searchFuzzy, "fuzzy", false, "use subsequence fuzzy matching instead of substring matching")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of hits to return")
	rootCmd.AddCommand(searchCmd)
}
