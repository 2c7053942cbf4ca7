package cmd

import (
	"context"

	"github.com/silene/opam/pkg/model"
	"github.com/spf13/cobra"
)

var remoteAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Register a remote",
	Long: `Register a remote ahead of the existing ones, so it wins
spec conflicts on the next update. The address is classified by
shape: git checkouts by scheme or a .git suffix, package servers
otherwise. Use add-git to force the git kind on an odd address.`,
	Example: `% opam remote add opam.example.org:9999`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		u, err := model.ParseURL(args[0])
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
	remoteCmd.AddCommand(remoteAddCmd)
}
