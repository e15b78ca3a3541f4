package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyayatech/nyaya/internal/cli"
	"github.com/nyayatech/nyaya/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nyaya",
		Short: "Nyaya CLI - retrieval-backed legal reasoning",
		Long: `Nyaya CLI provides commands to search indexed authorities and ask
questions against the multi-agent reasoning pipeline.

Environment variables:
  NYAYA_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.WeightsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
