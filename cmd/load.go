package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/model"
	"github.com/sells-group/osm-wrangle/internal/store"
)

var (
	loadDB      string
	loadDriver  string
	loadDir     string
	loadPostGIS bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Recreate the five tables and fill them from the shaped CSV files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		override(&cfg.Store.DatabaseURL, loadDB)
		override(&cfg.Store.Driver, loadDriver)
		override(&cfg.Output.Dir, loadDir)
		if loadPostGIS {
			cfg.Store.PostGIS = true
		}
		if err := cfg.Validate("load"); err != nil {
			return err
		}

		loader, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer loader.Close() //nolint:errcheck

		report, err := loader.CreateTables(ctx)
		if err != nil {
			return eris.Wrap(err, "load: create tables")
		}
		for _, f := range report.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "statement failed: %s: %v\n", f.Statement, f.Err)
		}

		counts, err := loader.Fill(ctx, cfg.Output.Dir)
		if err != nil {
			return eris.Wrap(err, "load: fill")
		}

		w := cmd.OutOrStdout()
		for _, t := range model.Tables {
			fmt.Fprintf(w, "%-12s %d\n", t.Name, counts[t.Name])
		}
		zap.L().Info("load complete",
			zap.String("driver", cfg.Store.Driver),
			zap.String("dir", cfg.Output.Dir),
			zap.Int("statements", report.Executed),
			zap.Int("statements_failed", len(report.Failed)),
		)
		return nil
	},
}

func openStore(cmd *cobra.Command) (store.Loader, error) {
	loader, err := store.Open(cmd.Context(), store.Options{
		Driver:    cfg.Store.Driver,
		DSN:       cfg.Store.DatabaseURL,
		PostGIS:   cfg.Store.PostGIS,
		BatchSize: cfg.Store.BatchSize,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return loader, nil
}

func init() {
	loadCmd.Flags().StringVar(&loadDB, "db", "", "sqlite file or postgres connection string (default store.database_url)")
	loadCmd.Flags().StringVar(&loadDriver, "driver", "", "sqlite or postgres (default store.driver)")
	loadCmd.Flags().StringVar(&loadDir, "dir", "", "directory holding the table CSV files (default output.dir)")
	loadCmd.Flags().BoolVar(&loadPostGIS, "postgis", false, "add a point geometry column to nodes (postgres only)")
	rootCmd.AddCommand(loadCmd)
}
