package main

import (
	"os"

	"github.com/inboxflow/inboxflow/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
