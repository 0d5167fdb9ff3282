// Package main is the entry point for the stepforge preferences tool.
package main

import (
	"fmt"
	"os"

	"github.com/stepforge/stepforge/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCommand()
	root.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	err := root.Execute()
	if err != nil {
		out := &cli.OutputFormatter{Format: "text", Writer: os.Stderr}
		if f := root.PersistentFlags().Lookup("format"); f != nil && f.Value.String() == "json" {
			out = &cli.OutputFormatter{Format: "json", Writer: os.Stdout}
		}
		out.Error(err)
	}
	return cli.GetExitCode(err)
}
