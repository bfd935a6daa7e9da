// Command callsight runs the sales call analysis server and its CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:          "callsight",
	Short:        "Upload, transcribe, analyze, and export sales calls",
	Version:      version,
	SilenceUsage: true,
}

func main() {
	// A .env file in the working directory supplies secrets in development.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(
		serveCmd,
		stopCmd,
		statusCmd,
		uploadCmd,
		transcribeCmd,
		analyzeCmd,
		callsCmd,
		showCmd,
		exportCmd,
		configCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
