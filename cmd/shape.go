package main

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/fetcher"
	"github.com/sells-group/osm-wrangle/internal/pipeline"
	"github.com/sells-group/osm-wrangle/internal/shape"
	"github.com/sells-group/osm-wrangle/internal/sink"
	"github.com/sells-group/osm-wrangle/internal/validate"
)

var (
	shapeInput     string
	shapeOut       string
	shapeShapefile string
	shapeValidate  bool
	shapeAbort     bool
	shapeMetrics   string
)

var shapeCmd = &cobra.Command{
	Use:   "shape",
	Short: "Shape an OSM extract into node, way and tag CSV tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		override(&cfg.Input.Path, shapeInput)
		override(&cfg.Output.Dir, shapeOut)
		override(&cfg.Output.Shapefile, shapeShapefile)
		override(&cfg.Pipeline.MetricsFile, shapeMetrics)
		if shapeValidate {
			cfg.Pipeline.Validate = true
		}
		if shapeAbort {
			cfg.Pipeline.AbortOnInvalid = true
		}
		if err := cfg.Validate("shape"); err != nil {
			return err
		}

		in, err := openInput(ctx, cfg, cfg.Input.Path)
		if err != nil {
			return eris.Wrap(err, "shape: open input")
		}
		defer in.Close() //nolint:errcheck

		cls := newClassifier(cfg)
		corrector, err := newCorrector(cfg, cls)
		if err != nil {
			return eris.Wrap(err, "shape: corrector")
		}

		csvSink, err := sink.NewCSVSink(cfg.Output.Dir)
		if err != nil {
			return err
		}
		var out sink.Sink = csvSink
		if cfg.Output.Shapefile != "" {
			shpSink, err := sink.NewShapefileSink(cfg.Output.Shapefile)
			if err != nil {
				_ = csvSink.Close()
				return err
			}
			out = sink.Multi{csvSink, shpSink}
		}

		opts := []pipeline.Option{pipeline.WithAbortOnInvalid(cfg.Pipeline.AbortOnInvalid)}
		if cfg.Pipeline.Validate {
			v, err := validate.New(cls.ProblemChars())
			if err != nil {
				_ = out.Close()
				return eris.Wrap(err, "shape: validator")
			}
			opts = append(opts, pipeline.WithValidator(v))
		}

		src := fetcher.NewElementReader(in, cfg.Input.Elements...)
		driver := pipeline.New(src, shape.New(cls, corrector), out, opts...)

		sum, runErr := driver.Run(ctx)
		closeErr := out.Close()
		if runErr != nil {
			return eris.Wrap(runErr, "shape")
		}
		if closeErr != nil {
			return eris.Wrap(closeErr, "shape: close sinks")
		}

		if cfg.Pipeline.MetricsFile != "" {
			if err := driver.Metrics().WriteTextfile(cfg.Pipeline.MetricsFile); err != nil {
				return err
			}
		}

		zap.L().Info("shape complete",
			zap.String("input", cfg.Input.Path),
			zap.String("dir", csvSink.Dir()),
			zap.String("run_id", sum.RunID),
		)
		printSummary(cmd.OutOrStdout(), sum, csvSink.Rows())
		return nil
	},
}

func printSummary(w io.Writer, sum *pipeline.Summary, rows map[string]int64) {
	fmt.Fprintf(w, "run %s (%s)\n", sum.RunID, sum.Duration.Round(time.Millisecond))

	tables := make([]string, 0, len(rows))
	for t := range rows {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(w, "  %-12s %d\n", t, rows[t])
	}

	fmt.Fprintf(w, "skipped elements: %d\n", sum.SkippedTotal())
	reasons := make([]string, 0, len(sum.Skipped))
	for r := range sum.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %-20s %d\n", r, sum.Skipped[r])
	}
	fmt.Fprintf(w, "dropped tags: %d\nmalformed tags: %d\n", sum.Dropped, sum.Malformed)
}

func init() {
	shapeCmd.Flags().StringVar(&shapeInput, "input", "", "map file path or http/ftp URL (.gz and .bz2 are decompressed)")
	shapeCmd.Flags().StringVar(&shapeOut, "out", "", "directory for the table CSV files (default output.dir)")
	shapeCmd.Flags().StringVar(&shapeShapefile, "shapefile", "", "also write nodes to this point shapefile")
	shapeCmd.Flags().BoolVar(&shapeValidate, "validate", false, "check every record against the table schema")
	shapeCmd.Flags().BoolVar(&shapeAbort, "abort-on-invalid", false, "stop at the first record that fails validation")
	shapeCmd.Flags().StringVar(&shapeMetrics, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	rootCmd.AddCommand(shapeCmd)
}
