package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known packages",
	Long: `List every package the index knows, one line per name:
the name, the installed version or -- when not installed, and the
first line of the description.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, err := newClient(ctx)
		if err != nil {
			wrapFatalln("load client root", err)
			return
		}
		if err = client.List(ctx); err != nil {
			wrapFatalln("list packages", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
