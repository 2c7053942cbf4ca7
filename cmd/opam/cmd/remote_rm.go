package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var remoteRmCmd = &cobra.Command{
	Use:   "rm <address-or-host>",
	Short: "Unregister remotes",
	Long: `Unregister every remote matching the argument, compared
against both the raw address and the hostname. Matching nothing is
not an error.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
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
		if err = client.RemoteRemove(ctx, args[0]); err != nil {
			wrapFatalln("remove remote", err)
			return
		}
	},
}

func init() {
	remoteCmd.AddCommand(remoteRmCmd)
}
