package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukerupert/sparks/internal/cli"
)

func run() error {
	return cli.NewRootCommand().ExecuteContext(context.Background())
}

func main() {
	if err := run(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Shown {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
