// Package main provides the entry point for the hashsweep CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}
