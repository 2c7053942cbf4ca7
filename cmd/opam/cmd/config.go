package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config {--include | --bytelink | --asmlink} <name> ...",
	Short: "Print compilation flags for installed packages",
	Long: `Print, on one line, the compilation flags of the named
installed packages: include paths with --include, link options and
library archives with --bytelink or --asmlink. With --recursive the
line covers the transitive dependencies too, dependencies first, so
it can be spliced into a compiler invocation as-is.`,
	Example: `% ocamlfind ocamlc $(opam config -r --bytelink lwt) main.ml`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		req, err := configRequest()
		if err != nil {
			wrapFatalln("select config mode", err)
			return
		}
		client, err := newClient(ctx)
		if err != nil {
			wrapFatalln("load client root", err)
			return
		}
		if err = client.Config(ctx, opamFlags.config.recursive, req, args); err != nil {
			wrapFatalln("print package flags", err)
			return
		}
	},
}

func init() {
	addRecursiveFlag(configCmd)
	addIncludeFlag(configCmd)
	addBytelinkFlag(configCmd)
	addAsmlinkFlag(configCmd)
	rootCmd.AddCommand(configCmd)
}
