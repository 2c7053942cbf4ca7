package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <spec-file>",
	Short: "Publish a package to the configured remotes",
	Long: `Publish a package described by a local spec file.

Sources named by local paths in the spec are repacked into an archive;
purely external sources upload the spec alone. Each server remote is
offered the package in turn (git remotes never receive uploads), and
the first publication key issued is kept for later republications.`,
	Example: `% opam upload lwt-2.4.3.spec`,
	Args:    cobra.ExactArgs(1),
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
		if err = client.Upload(ctx, args[0]); err != nil {
			wrapFatalln("upload package", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
