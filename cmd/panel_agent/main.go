// Package main provides the entry point for the Brand Panel agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "panel_agent",
	Short: "Brand Panel simulated focus-group agent",
	Long:  "Brand Panel researches a brand, recruits a panel of audience personas, has each persona judge a set of creative assets, and synthesizes an aggregate report.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
