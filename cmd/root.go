package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/config"
)

// cfg is loaded once in the root PersistentPreRunE and shared by every
// subcommand.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "credibility-engine",
	Short: "Provider credibility scoring and badge lifecycle engine",
	Long: "Computes multi-factor credibility scores for marketplace providers,\n" +
		"manages badge grants and expiry, and serves the event triggers and\n" +
		"scheduled jobs that keep both fresh.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
