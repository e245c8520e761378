package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/sample"
)

var (
	sampleInput string
	sampleOut   string
	sampleK     int
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write every k-th top-level element to a smaller OSM file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		override(&cfg.Input.Path, sampleInput)
		if err := requireInput(cfg); err != nil {
			return err
		}

		in, err := openInput(ctx, cfg, cfg.Input.Path)
		if err != nil {
			return eris.Wrap(err, "sample: open input")
		}
		defer in.Close() //nolint:errcheck

		out, err := os.Create(sampleOut)
		if err != nil {
			return eris.Wrapf(err, "sample: create %s", sampleOut)
		}

		res, err := sample.Write(ctx, in, out, sampleK)
		if cerr := out.Close(); err == nil && cerr != nil {
			err = eris.Wrapf(cerr, "sample: close %s", sampleOut)
		}
		if err != nil {
			return err
		}

		zap.L().Info("sample complete",
			zap.String("out", sampleOut),
			zap.Int("seen", res.Seen),
			zap.Int("written", res.Written),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d elements to %s\n", res.Written, res.Seen, sampleOut)
		return nil
	},
}

func init() {
	sampleCmd.Flags().StringVar(&sampleInput, "input", "", "map file path or http/ftp URL")
	sampleCmd.Flags().StringVar(&sampleOut, "out", "sample.osm", "file to write the sample to")
	sampleCmd.Flags().IntVarP(&sampleK, "k", "k", 10, "keep every k-th element")
	rootCmd.AddCommand(sampleCmd)
}
