// Command aql compiles AQL queries to SQLite SQL.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/aql/internal/cli"
	"github.com/roach88/aql/internal/config"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	err := cli.NewRootCommand().Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	// Commands report ExitErrors themselves. Anything else came from cobra
	// (bad flags, wrong argument count).
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
