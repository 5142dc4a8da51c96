// Package main is the entry point for the ongkir delivery quote CLI.
package main

import (
	"os"

	"github.com/simbok/delivery/cmd/ongkir/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
