package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured remotes",
	Long:  `List the configured remotes in consultation order, one per line with its kind.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, err := newClient(ctx)
		if err != nil {
			wrapFatalln("load client root", err)
			return
		}
		if err = client.RemoteList(ctx); err != nil {
			wrapFatalln("list remotes", err)
			return
		}
	},
}

func init() {
	remoteCmd.AddCommand(remoteListCmd)
}
