package cmd

import (
	"context"

	"github.com/silene/opam/pkg/core"
	"github.com/silene/opam/pkg/model"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <remote-address> ...",
	Short: "Initialize a client root",
	Long: `Initialize a fresh client root and register the given remotes.

Addresses ending in .git or using a git scheme are registered as git
remotes; anything else is a package server "host[:port]". A first
update runs right away so the index is usable.`,
	Example: `% opam init opam.example.org git@github.com:org/packages.git`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		remotes := make([]model.URL, 0, len(args))
		for _, arg := range args {
			u, err := model.ParseURL(arg)
			if err != nil {
				wrapFatalln("parse remote address", err)
				return
			}
			remotes = append(remotes, u)
		}
		root, logger, err := newRoot()
		if err != nil {
			wrapFatalln("open client root", err)
			return
		}
		lock, err := takeRootLock()
		if err != nil {
			wrapFatalln("acquire root lock", err)
			return
		}
		defer releaseRootLock(lock)
		if _, err = core.Init(ctx, root, remotes, clientOptions(logger)...); err != nil {
			wrapFatalln("initialize client root", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
