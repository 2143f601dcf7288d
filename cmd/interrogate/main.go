// Command interrogate runs the Interrogation Protocol pipeline for a single
// ticket.
package main

import (
	"os"

	"github.com/kairos-labs/interrogate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
