package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangle/internal/stats"
)

var auditInput string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List unexpected street types and fix-request dates with their corrections",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		override(&cfg.Input.Path, auditInput)
		if err := requireInput(cfg); err != nil {
			return err
		}
		corrections, err := cfg.StreetCorrections()
		if err != nil {
			return err
		}
		clock, err := cfg.Shape.Clock()
		if err != nil {
			return err
		}

		in, err := openInput(ctx, cfg, cfg.Input.Path)
		if err != nil {
			return eris.Wrap(err, "audit: open input")
		}
		defer in.Close() //nolint:errcheck

		report, err := stats.Audit(ctx, in, stats.AuditOptions{
			StreetKey:   cfg.Shape.StreetField,
			FixDateKey:  cfg.Shape.FixDateField,
			Corrections: corrections,
			Today:       clock(),
		})
		if err != nil {
			return err
		}
		printAudit(cmd.OutOrStdout(), report)
		return nil
	},
}

func printAudit(w io.Writer, report *stats.AuditReport) {
	fmt.Fprintf(w, "unexpected street types: %d\n", len(report.Streets))
	for _, st := range report.Streets {
		fmt.Fprintf(w, "%s\n", st.Type)
		for _, fix := range st.Fixes {
			if fix.Corrected == fix.Name {
				fmt.Fprintf(w, "  %s\n", fix.Name)
				continue
			}
			fmt.Fprintf(w, "  %s => %s\n", fix.Name, fix.Corrected)
		}
	}

	fmt.Fprintf(w, "fix dates: %d\n", len(report.FixDates))
	for _, fd := range report.FixDates {
		switch {
		case fd.Err != nil:
			fmt.Fprintf(w, "  %s: %v\n", fd.Value, fd.Err)
		case fd.Corrected != fd.Value:
			fmt.Fprintf(w, "  %s => %s\n", fd.Value, fd.Corrected)
		default:
			fmt.Fprintf(w, "  %s\n", fd.Value)
		}
	}
}

func init() {
	auditCmd.Flags().StringVar(&auditInput, "input", "", "map file path or http/ftp URL")
	rootCmd.AddCommand(auditCmd)
}
