package main

import (
	"fmt"
	"os"

	"github.com/wesleyorama2/simfleet/internal/cli"
	"github.com/wesleyorama2/simfleet/internal/fleeterr"
)

// Main is the entry point for the application
// It's exported to make it testable
func Main() int {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return fleeterr.ExitCode(err)
	}
	return fleeterr.ExitOK
}

func main() {
	os.Exit(Main())
}
