// Command eventdb is the command-line interface to an eventdb database.
package main

import (
	"os"

	"github.com/roach88/eventdb/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
