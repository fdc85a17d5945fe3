package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hyprice/app"
	"hyprice/config"
)

var rootCmd = &cobra.Command{
	Use:   "hyprice",
	Short: "A per-subscriber token watchlist and price tracker",
	Long: `HyPrice tracks each subscriber's watchlist of tokens and keeps
their price and 24h-change summaries refreshed on a schedule, sharing
one cached upstream fetch per token across all subscribers.`,
	RunE: runHypriceE,
}

func init() {
	config.InitConfig(rootCmd)
}

func runHypriceE(cmd *cobra.Command, args []string) error {
	// Optional .env; flags and HYPRICE_* variables take over from here.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	return app.Run(cfg)
}

func Execute() error {
	return rootCmd.Execute()
}
