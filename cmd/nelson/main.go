package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/BTBurke/nelson"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, opts, err := nelson.ParseCommandLine()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nelson.ExitOK
		}
		fmt.Fprintf(os.Stderr, "Could not parse configuration: %s\n\nUse nelson --help for options\n", err)
		return nelson.ExitError
	}

	cmd, errs := nelson.New(args, opts...)
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Error in config:")
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return nelson.ExitError
	}
	defer cmd.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Exec(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Evaluation error:", err)
		return nelson.ExitError
	}
	if err := cmd.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Not all reports sent: %s\n", err)
		return nelson.ExitError
	}
	return cmd.ExitCode()
}
