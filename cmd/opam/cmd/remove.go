package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed package",
	Long: `Remove an installed package together with the installed
packages depending on it. The proposed actions are printed for
confirmation first; removals count as destructive.`,
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
		fatalUnlessNoSolution("remove package", client.Remove(ctx, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
