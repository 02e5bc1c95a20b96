// Command prizm is the client CLI that drives one scope's prizmd daemon
// over internal/rpc, auto-starting the daemon when none is running yet.
// The daemon is the only store-access path; there is no direct-filesystem
// fallback mode.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/debug"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/spf13/cobra"
)

// errSilentNonZero signals a command already printed its own error text
// (a tool result with isError=true) and just needs a non-zero exit code.
var errSilentNonZero = errors.New("")

// Version is overridden at build time via -ldflags.
var Version = "0.0.0-dev"

var (
	flagScope   string
	flagActor   string
	flagJSON    bool
	flagNoSpawn bool
)

var rootCmd = &cobra.Command{
	Use:           "prizm",
	Short:         "Prizm workspace CLI",
	Long:          "prizm drives a local Prizm scope's daemon: documents, todos, locks, schedules, workflows.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "prizm: %v\n", err)
		os.Exit(1)
	}
	debug.SetEnabled(os.Getenv("PRIZM_DEBUG") == "1" || os.Getenv("PRIZM_DEBUG") == "true")
	rpc.ClientVersion = Version

	rootCmd.PersistentFlags().StringVar(&flagScope, "scope", "", "scope root directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor identity recorded in audit entries and lock holders")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagNoSpawn, "no-daemon-spawn", false, "fail instead of auto-starting a daemon")

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilentNonZero) {
			fmt.Fprintf(os.Stderr, "prizm: %v\n", err)
		}
		os.Exit(1)
	}
}

// printResult renders a tool-result-shaped response either as plain text
// or, with --json, as the raw {text,isError,structured_data} object.
func printResult(v interface{}, text string, isError bool) {
	if flagJSON {
		data, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(data))
		return
	}
	if isError {
		fmt.Fprintln(os.Stderr, text)
		return
	}
	fmt.Println(text)
}
