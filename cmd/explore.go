package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangle/internal/geo"
	"github.com/sells-group/osm-wrangle/internal/store"
)

var (
	exploreScript    string
	exploreShapefile string
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Run a query script against the store, or summarise a point shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()

		if exploreShapefile != "" {
			return exploreShapes(w, exploreShapefile)
		}
		if exploreScript == "" {
			return eris.New("explore: pass --script or --shapefile")
		}

		script, err := os.ReadFile(exploreScript)
		if err != nil {
			return eris.Wrapf(err, "explore: read %s", exploreScript)
		}
		override(&cfg.Store.DatabaseURL, loadDB)
		override(&cfg.Store.Driver, loadDriver)
		if err := cfg.Validate("load"); err != nil {
			return err
		}

		loader, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer loader.Close() //nolint:errcheck

		results, err := loader.Explore(cmd.Context(), string(script))
		if err != nil {
			return eris.Wrap(err, "explore")
		}
		printResults(w, results)
		return nil
	},
}

func printResults(w io.Writer, results []store.QueryResult) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s\n", r.Statement)
		if r.Err != nil {
			fmt.Fprintf(w, "error: %v\n", r.Err)
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		if len(r.Columns) > 0 {
			fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
		}
		for _, row := range r.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		_ = tw.Flush()
		fmt.Fprintf(w, "(%d rows)\n", len(r.Rows))
	}
}

func exploreShapes(w io.Writer, path string) error {
	points, err := geo.ReadPoints(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "points: %d\n", len(points))
	if minLat, minLon, maxLat, maxLon, ok := geo.Bounds(points); ok {
		fmt.Fprintf(w, "bounds: %.7f,%.7f %.7f,%.7f\n", minLat, minLon, maxLat, maxLon)
	}

	users := make(map[string]int)
	for _, p := range points {
		users[p.Attributes["user"]]++
	}
	fmt.Fprintf(w, "users: %d\n", len(users))
	return nil
}

func init() {
	exploreCmd.Flags().StringVar(&exploreScript, "script", "", "SQL script; each statement's rows are printed")
	exploreCmd.Flags().StringVar(&exploreShapefile, "shapefile", "", "point shapefile written by shape --shapefile")
	exploreCmd.Flags().StringVar(&loadDB, "db", "", "sqlite file or postgres connection string (default store.database_url)")
	exploreCmd.Flags().StringVar(&loadDriver, "driver", "", "sqlite or postgres (default store.driver)")
	rootCmd.AddCommand(exploreCmd)
}
