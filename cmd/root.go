package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "osm-wrangle",
	Short: "OpenStreetMap XML to relational rows",
	Long:  "Streams an OpenStreetMap XML extract, cleans street names and fix dates, writes nodes, ways and their tags as CSV tables and loads them into SQLite or Postgres.",
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
