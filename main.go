package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/temirov/transplant/cmd/cli"
)

const exitErrorTemplateConstant = "git-transplant: %v\n"

// main runs git-transplant and exits with status 1 when the transplant or its setup fails.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
