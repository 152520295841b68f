// Package cli implements the hur command line.
package cli

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/WhileEndless/go-hur/pkg/constants"
	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/logger"
)

// exitInterrupted is the conventional status after SIGINT.
const exitInterrupted = 130

type app struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	getenv   func(string) string
	useColor bool
}

// usageError marks errors in the command line itself.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Run executes the command line in args, without the program name, and
// returns the process exit status.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		getenv:   os.Getenv,
		useColor: isTerminal(stderr),
	}
	return a.run(ctx, args)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet(constants.Name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	debug := fs.Bool("debug", false, "Log debug output to stderr")
	version := fs.Bool("version", false, "Print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: %s [--debug] <command> [args]\n\n", constants.Name)
		fmt.Fprintln(a.stderr, "Commands:")
		fmt.Fprintln(a.stderr, "  req URL [flags]   send a request")
		fmt.Fprintln(a.stderr, "  config create     write the default config file")
		fmt.Fprintln(a.stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *version {
		fmt.Fprintf(a.stdout, "%s %s\n", constants.Name, constants.Version)
		return 0
	}
	if *debug {
		logger.Enable()
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	var err error
	switch cmd, rest := fs.Arg(0), fs.Args()[1:]; cmd {
	case "req":
		err = a.runRequest(ctx, rest)
	case "config":
		err = a.runConfig(rest)
	default:
		err = usageError{fmt.Errorf("unknown command %q", cmd)}
	}
	if err == nil {
		return 0
	}

	if stderrors.Is(err, flag.ErrHelp) {
		return 0
	}
	var ue usageError
	if stderrors.As(err, &ue) {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	if errors.IsContextCanceled(err) {
		fmt.Fprintln(a.stderr, "request canceled")
		return exitInterrupted
	}
	fmt.Fprintf(a.stderr, "error performing request: %v\n", err)
	return 1
}
