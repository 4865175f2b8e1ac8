// Command phaselever classifies points on the U–Ti phase diagram, computes
// phase amounts by the lever rule and serves both over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
