// Package main is the entry point for bean-import CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/statement-importer/cmd/bean-import/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
