// Package main is the entry point for the psicoscore CLI.
package main

import (
	"fmt"
	"os"

	"github.com/arkantu/psicoscore/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "psicoscore: %v\n", err)
		os.Exit(1)
	}
}
