package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title Fleet Service API
// @version 1.0.0
// @description Service request lifecycle and technician scheduling
// @BasePath /
// @schemes http

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleet-api",
		Short: "Fleet maintenance service request API",
		Long: `fleet-api serves the service request lifecycle, technician scheduling
and bulk dispatch endpoints. Configuration is read from the environment and
an optional .env file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
