// Package cmd holds the cobra command tree of the server binary.
package cmd

import (
	"context"
	"fmt"

	"article-api/backend/pkg/config"
	"article-api/backend/pkg/di"

	"github.com/spf13/cobra"
)

// Version is set by the main package
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Article REST API",
	Long: `Article REST API with per-route rate limiting.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd, versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

// bootstrap loads the configuration and builds the container
func bootstrap(ctx context.Context) (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return di.New(ctx, cfg, di.Options{})
}
