package main

import (
	"os"

	"github.com/roach88/lunchdesk/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		cli.ReportError(root, err)
		os.Exit(cli.GetExitCode(err))
	}
}
