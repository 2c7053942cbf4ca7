package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "opam",
	Short: "Opam is a source-based package manager",
	Long: `Opam is a source-based package manager.

It keeps a per-user client root holding the spec index, the installed
set and the built artifacts, synchronizes the index from the configured
remotes, and answers install, remove and upgrade requests by resolving
them against the index and building packages from source.

The client root is selected by --root, the OPAMROOT environment
variable, or $HOME/.opam, in that order.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initRootPath)
	addRootPathFlag(rootCmd)
	addLogLevelFlag(rootCmd)
	addAssumeYesFlag(rootCmd)
}

// initRootPath resolves the client root selector. Precedence is the
// --root flag, then the OPAMROOT environment variable, then
// $HOME/.opam.
func initRootPath() {
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindEnv("root", "OPAMROOT")
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetDefault("root", filepath.Join(home, ".opam"))
}
