package main

import (
	"fmt"
	"os"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/cmd/choicectl/app"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := app.NewApp(version, commit, date).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
