// Package main is the entry point for the gymdesk server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
