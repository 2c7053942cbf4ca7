package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/errors"
)

var (
	// globals used to patch over calls to os.Exit() during test

	logFatalln = log.Fatalln
	logFatalf  = log.Fatalf
	osExit     = os.Exit

	// infoLogger wraps informative messages to os.Stdout without cluttering expected output in tests.
	// To be used instead of fmt.Printf(os.Stdout, ...)
	infoLogger = log.New(os.Stdout, "", 0)
)

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalf("%v", fmt.Errorf(msg+": %w", err))
	}
}

// fatalUnlessNoSolution terminates the command on any resolution
// error except an unsolvable request, which prints as a plain message
// and exits zero: the command did its job, the solver just has
// nothing to offer.
func fatalUnlessNoSolution(msg string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, status.ErrNoSolution) {
		infoLogger.Println(err)
		return
	}
	wrapFatalln(msg, err)
}
