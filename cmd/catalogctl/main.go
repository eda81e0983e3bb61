// Package main is the entry point for the catalogctl CLI.
package main

import (
	"os"

	"github.com/Cheertaboi/esim-catalog-service/cmd/catalogctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
