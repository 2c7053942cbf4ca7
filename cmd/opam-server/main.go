package main

import (
	"fmt"
	"os"

	"github.com/silene/opam/pkg/dlogger"
	"github.com/silene/opam/pkg/httpd"
	"github.com/silene/opam/pkg/remote/localindex"
	"github.com/silene/opam/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	baseDir  string
	logLevel string
)

func init() {
	httpd.RegisterFlags(pflag.CommandLine)
	pflag.StringVar(&baseDir, "base-dir", ".opamd", "the base directory for the package index")
	pflag.StringVar(&logLevel, "loglevel", dlogger.LogLevelInfo, "log level for diagnostics (debug, info, none)")
}

type zapLogger struct {
	lg *zap.Logger
}

func (z *zapLogger) Printf(format string, args ...interface{}) {
	z.lg.Info(fmt.Sprintf(format, args...))
}

func (z *zapLogger) Fatalf(format string, args ...interface{}) {
	z.lg.Fatal(fmt.Sprintf(format, args...))
}

func main() {
	pflag.Parse()

	logger, err := dlogger.GetLogger(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger = logger.With(zap.String("service", "opam-server"))

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		logger.Fatal("initializing index directory", zap.Error(err))
	}
	store := localfs.New(afero.NewBasePathFs(afero.NewOsFs(), baseDir))
	backend := localindex.New(store,
		localindex.Keyed(),
		localindex.Logger(logger),
	)

	server := httpd.New(
		httpd.LogsWith(&zapLogger{lg: logger}),
		httpd.HandlesRequestsWith(httpd.InitRouter(httpd.NewAPI(backend, httpd.APIParams{
			Logger: logger,
		}))),
	)

	if err := server.Listen(); err != nil {
		logger.Fatal("", zap.Error(err))
	}

	if err := server.Serve(); err != nil {
		logger.Fatal("", zap.Error(err))
	}
}
