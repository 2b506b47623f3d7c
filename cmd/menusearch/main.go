// Package main provides the entry point for the menusearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/menusearch/cmd/menusearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
