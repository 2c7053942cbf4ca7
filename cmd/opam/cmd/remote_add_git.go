package cmd

import (
	"context"

	"github.com/silene/opam/pkg/model"
	"github.com/spf13/cobra"
)

var remoteAddGitCmd = &cobra.Command{
	Use:   "add-git <address>",
	Short: "Register a git remote",
	Long: `Register a git remote ahead of the existing ones, taking the
address as a git checkout whatever its shape.`,
	Example: `% opam remote add-git git@github.com:org/packages.git`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		u, err := model.ParseGitURL(args[0])
		if err != nil {
			wrapFatalln("parse remote address", err)
			return
		}
		lock, err := takeRootLock()
		if err != nil {
			wrapFatalln("acquire root lock", err)
			return
		}
		defer releaseRootLock(lock)
		client, err := newClient(ctx)
		if err != nil {
			wrapFatalln("load client root", err)
			return
		}
		if err = client.RemoteAdd(ctx, u); err != nil {
			wrapFatalln("add remote", err)
			return
		}
	},
}

func init() {
	remoteCmd.AddCommand(remoteAddGitCmd)
}
