package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <name | name-version>",
	Short: "Install a package and its dependencies",
	Long: `Install a package and whatever its spec requires.

A bare name installs the newest known version; a name-version pins the
exact one. The proposed actions are printed for confirmation before
any source is fetched or built.`,
	Example: `% opam install lwt
% opam install lwt-2.4.3`,
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
		fatalUnlessNoSolution("install package", client.Install(ctx, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
