// Command rcvtab runs the deterministic ranked-choice tabulation engine.
package main

import (
	"os"

	"github.com/clearvote/rcvtab/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
