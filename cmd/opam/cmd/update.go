package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Synchronize the package index from the remotes",
	Long: `Synchronize the package index from the configured remotes.

Every remote is attempted; server remotes are asked for their package
list, git remotes are cloned or pulled. Newly learned packages print
one line each. Failing remotes are reported after the loop and make
the command exit non-zero, without stopping the other remotes.`,
	Args: cobra.NoArgs,
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
		if err = client.Update(ctx); err != nil {
			wrapFatalln("update package index", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
