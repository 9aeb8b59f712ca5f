package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "manyd"}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(initChainCmd())
	rootCmd.AddCommand(migrateCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
