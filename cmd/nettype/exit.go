package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skdltmxn/nettype-go/metadata"
	"github.com/skdltmxn/nettype-go/report"
)

// Exit codes.
const (
	exitOK              = 0
	exitMissingValue    = 1
	exitUnknownOption   = 2
	exitLoadFailure     = 3
	exitUnsupportedKind = 4
)

// usageError is a command line error with its exit code decided at parse time.
type usageError struct {
	code int
	err  error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// flagError classifies pflag parse errors by their message.
func flagError(_ *cobra.Command, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "unknown flag"), strings.HasPrefix(msg, "unknown shorthand flag"):
		return &usageError{code: exitUnknownOption, err: err}
	default:
		// "flag needs an argument" and unparsable values
		return &usageError{code: exitMissingValue, err: err}
	}
}

// exitCode maps an error returned by the root command to a process status.
func exitCode(err error) int {
	var uerr *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr):
		return uerr.code
	case errors.Is(err, metadata.ErrAssemblyNotFound), errors.Is(err, metadata.ErrAssemblyLoad):
		return exitLoadFailure
	case errors.Is(err, report.ErrUnsupportedKind):
		return exitUnsupportedKind
	default:
		// invalid arguments and config errors
		return exitMissingValue
	}
}

func printError(w io.Writer, err error) {
	prefix := color.New(color.FgRed, color.Bold)
	prefix.Fprint(w, "error:")
	fmt.Fprintf(w, " %v\n", err)
}
