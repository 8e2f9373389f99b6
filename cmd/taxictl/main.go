// Command taxictl is the operator CLI for the taxi analytics store.
package main

import (
	"os"

	"github.com/pkordes/taxi-analytics/backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
