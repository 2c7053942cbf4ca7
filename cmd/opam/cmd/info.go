package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show what is known about a package",
	Long: `Show the recorded fields of one package: the installed
version, the other known versions, the size of the cached source
archive when the local mirror holds one, and the full description.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, err := newClient(ctx)
		if err != nil {
			wrapFatalln("load client root", err)
			return
		}
		if err = client.Info(ctx, args[0]); err != nil {
			wrapFatalln("show package", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
