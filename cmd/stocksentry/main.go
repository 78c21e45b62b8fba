// Package main is the entry point for stocksentry.
package main

import (
	"os"

	"github.com/stocksentry/stocksentry/cmd/stocksentry/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
