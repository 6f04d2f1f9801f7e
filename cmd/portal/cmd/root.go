package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/homeowner/portal/internal/infrastructure/config"
	"github.com/homeowner/portal/pkg/logger"
)

const serviceName = "homeowner-portal"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "HomeOwner portal server",
	Long: `HomeOwner portal serves the resident, staff and administrator web pages
together with the user administration API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger.Init(logger.Options{
			Level:   cfg.LogLevel,
			Pretty:  cfg.IsDevelopment(),
			Service: serviceName,
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(usersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
