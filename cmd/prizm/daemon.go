package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/prizm-dev/prizm/internal/daemon"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the per-scope prizmd daemon",
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon status for the current scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		scopeRoot, err := resolveScope()
		if err != nil {
			return err
		}
		info, err := daemonInfo(scopeRoot)
		if err != nil {
			printResult(nil, fmt.Sprintf("no daemon running for %s", scopeRoot), true)
			return nil
		}
		printResult(info, fmt.Sprintf("scope=%s pid=%d version=%s uptime=%.1fs alive=%v",
			info.ScopeRoot, info.PID, info.Version, info.UptimeSeconds, info.Alive), false)
		return nil
	},
}

var daemonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every daemon registered on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := daemon.Discover()
		if err != nil {
			return err
		}
		if flagJSON {
			printResult(infos, "", false)
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "SCOPE\tPID\tVERSION\tUPTIME\tALIVE")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%d\t%s\t%.0fs\t%v\n", info.ScopeRoot, info.PID, info.Version, info.UptimeSeconds, info.Alive)
		}
		return w.Flush()
	},
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start (or connect to) the daemon for the current scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		scopeRoot, err := resolveScope()
		if err != nil {
			return err
		}
		client, err := connectDaemon(scopeRoot)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		status, err := client.Status()
		if err != nil {
			return err
		}
		printResult(status, fmt.Sprintf("daemon ready: pid=%d version=%s", status.PID, status.Version), false)
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon for the current scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		scopeRoot, err := resolveScope()
		if err != nil {
			return err
		}
		info, err := daemonInfo(scopeRoot)
		if err != nil {
			printResult(nil, fmt.Sprintf("no daemon running for %s", scopeRoot), true)
			return nil
		}
		if err := daemon.Stop(*info); err != nil {
			return err
		}
		printResult(nil, "daemon stopped", false)
		return nil
	},
}

func init() {
	daemonCmd.AddCommand(daemonStatusCmd, daemonListCmd, daemonStartCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}
