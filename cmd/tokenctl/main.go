// Command tokenctl issues and inspects portier tokens from the command
// line, and provisions principals in the postgres auth store.
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
