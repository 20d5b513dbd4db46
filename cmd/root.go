package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haulview/carrier-api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "carrier-api",
	Short: "Read-only gateway for carrier, VIN, and ZIP-radius lookups",
	Long:  "Proxies the FMCSA carrier census (Socrata), the NHTSA vPIC batch VIN decoder, and a PostGIS ZIP-centroid table behind stable JSON endpoints.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
