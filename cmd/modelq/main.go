package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/modelq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// commands print their own errors; this covers flag and argument errors
		// that cobra rejects before a command runs
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
