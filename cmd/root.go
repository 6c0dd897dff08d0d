package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "regionsync",
	Short: "Regional case data aggregation and sync",
	Long:  "Aggregates county case, demographic and Risklayer data, reconciles it per region, reconstructs cumulative series and pushes the result to the remote case store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Credentials may live in .env; a missing file is fine.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

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
