package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
	"github.com/silene/opam/pkg/core"
	"github.com/silene/opam/pkg/dlogger"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type flagsT struct {
	root struct {
		path      string
		logLevel  string
		assumeYes bool
	}
	config struct {
		recursive bool
		include   bool
		bytelink  bool
		asmlink   bool
	}
}

var opamFlags = flagsT{}

func addRootPathFlag(cmd *cobra.Command) string {
	root := "root"
	cmd.PersistentFlags().StringVar(&opamFlags.root.path, root, "",
		"Path to the client root. Defaults to $OPAMROOT, then $HOME/.opam")
	return root
}

func addLogLevelFlag(cmd *cobra.Command) string {
	loglevel := "loglevel"
	cmd.PersistentFlags().StringVar(&opamFlags.root.logLevel, loglevel, dlogger.LogLevelNone,
		"The logging level. Levels by increasing order of verbosity: none, info, debug")
	return loglevel
}

func addAssumeYesFlag(cmd *cobra.Command) string {
	yes := "yes"
	cmd.PersistentFlags().BoolVarP(&opamFlags.root.assumeYes, yes, "y", false,
		"Answer yes to every prompt")
	return yes
}

func addRecursiveFlag(cmd *cobra.Command) string {
	recursive := "recursive"
	cmd.Flags().BoolVarP(&opamFlags.config.recursive, recursive, "r", false,
		"Expand the request to the transitive dependencies of the named packages")
	return recursive
}

func addIncludeFlag(cmd *cobra.Command) string {
	include := "include"
	cmd.Flags().BoolVar(&opamFlags.config.include, include, false,
		"Print compiler include flags")
	return include
}

func addBytelinkFlag(cmd *cobra.Command) string {
	bytelink := "bytelink"
	cmd.Flags().BoolVar(&opamFlags.config.bytelink, bytelink, false,
		"Print bytecode linking flags")
	return bytelink
}

func addAsmlinkFlag(cmd *cobra.Command) string {
	asmlink := "asmlink"
	cmd.Flags().BoolVar(&opamFlags.config.asmlink, asmlink, false,
		"Print native linking flags")
	return asmlink
}

/** flags and environment to internal objects */

// rootPath is the resolved client root directory for this invocation.
func rootPath() string {
	return viper.GetString("root")
}

func newRoot() (*state.Root, *zap.Logger, error) {
	logger, err := dlogger.GetLogger(opamFlags.root.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("get logger: %w", err)
	}
	root := state.New(state.Environment{
		BasePath: rootPath(),
		Logger:   logger,
	})
	return root, logger, nil
}

func clientOptions(logger *zap.Logger) []core.Option {
	return []core.Option{
		core.Logger(logger),
		core.Input(os.Stdin),
		core.Output(os.Stdout),
		core.AssumeYes(opamFlags.root.assumeYes),
	}
}

// newClient loads the client over the configured root.
func newClient(ctx context.Context) (*core.Client, error) {
	root, logger, err := newRoot()
	if err != nil {
		return nil, err
	}
	return core.New(ctx, root, clientOptions(logger)...)
}

// configRequest maps the config command's mode flags onto a request.
// Exactly one mode must be selected.
func configRequest() (core.ConfigRequest, error) {
	var (
		req core.ConfigRequest
		set int
	)
	if opamFlags.config.include {
		req = core.ConfigInclude
		set++
	}
	if opamFlags.config.bytelink {
		req = core.ConfigBytelink
		set++
	}
	if opamFlags.config.asmlink {
		req = core.ConfigAsmlink
		set++
	}
	if set != 1 {
		return req, fmt.Errorf("exactly one of --include, --bytelink or --asmlink must be given")
	}
	return req, nil
}

/* lockfile to prevent concurrent mutations of the same client root */

func takeRootLock() (lockfile.Lockfile, error) {
	abs, err := filepath.Abs(rootPath())
	if err != nil {
		return "", fmt.Errorf("resolve root path: %w", err)
	}
	// the lock sits inside the root, which init has yet to create
	if err = os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("create root directory: %w", err)
	}
	lock, err := lockfile.New(filepath.Join(abs, model.GetLockPath()))
	if err != nil {
		return "", fmt.Errorf("create lockfile object: %w", err)
	}
	if err = lock.TryLock(); err != nil {
		return "", fmt.Errorf("another opam holds the root: %w", err)
	}
	return lock, nil
}

func releaseRootLock(lock lockfile.Lockfile) {
	if err := lock.Unlock(); err != nil {
		wrapFatalln("release root lock", err)
	}
}
