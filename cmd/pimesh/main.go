// Command pimesh is the CLI front-end for the messenger core: a thin
// integrating tool over internal/action's request surface (§6).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pimesh:", err)
		os.Exit(1)
	}
}
