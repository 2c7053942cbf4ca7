package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade every installed package",
	Long: `Upgrade the installed set to the newest versions the index
knows. Packages tracking a repository head are rebuilt when the
repository moved. Prints "Nothing to do." when everything is current.`,
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
		fatalUnlessNoSolution("upgrade packages", client.Upgrade(ctx))
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}
