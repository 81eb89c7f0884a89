// Command restatevm hosts the durable-execution VM over HTTP: it is the
// process a language SDK embeds (or shells out to) to get a working
// invoke/discover/health surface without reimplementing the protocol state
// machine itself.
package main

import (
	"fmt"
	"os"

	"github.com/restatevm/sharedcore/cmd/restatevm/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
