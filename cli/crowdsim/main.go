// Package main is the crowdsim command itself.
package main

import (
	"io"
	"os"

	"github.com/pterm/pterm"

	"go.viam.com/crowdsim/cli"
)

func main() {
	os.Exit(mainWithArgs(os.Args, os.Stdout, os.Stderr))
}

func mainWithArgs(args []string, out, errOut io.Writer) int {
	app := cli.NewApp(out, errOut)
	if err := app.Run(args); err != nil {
		pterm.Error.WithWriter(errOut).Println(err)
		return 1
	}
	return 0
}
