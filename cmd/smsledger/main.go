// Command smsledger ingests mobile-money SMS backups and serves the resulting
// transaction ledger over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/momoledger/smsledger/pkg/logging"
)

const usage = `Usage: smsledger <command> [flags]

Commands:
  ingest    Parse the SMS backup and write transactions to the configured writer
  serve     Serve the transaction ledger over HTTP
  status    Check source file, store and credentials
  plugins   List registered readers, writers and stores

Run 'smsledger <command> -h' for command flags.
`

func main() {
	logger := logging.Setup(logging.FromEnv())

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:], logger)
	case "serve":
		err = runServe(os.Args[2:], logger)
	case "status":
		err = runStatus(os.Args[2:])
	case "plugins":
		err = runPlugins(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}
