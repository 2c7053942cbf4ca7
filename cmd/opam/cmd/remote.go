package cmd

import (
	"github.com/spf13/cobra"
)

// remoteCmd groups the remote registry commands
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Commands to manage the configured remotes",
	Long: `Commands to manage the configured remotes.

Remotes are consulted in configuration order by update, install and
upload. A remote is either a package server ("host[:port]") or a git
repository holding package specs and sources.`,
}

func init() {
	rootCmd.AddCommand(remoteCmd)
}
