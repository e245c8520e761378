package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangle/internal/stats"
)

var statsInput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Survey an OSM extract before shaping it",
}

var statsTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Count elements by tag name",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withInput(cmd, func(ctx context.Context, in io.Reader) error {
			counts, err := stats.CountTags(ctx, in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, c := range counts {
				fmt.Fprintf(w, "%-12s %d\n", c.Name, c.Count)
			}
			return nil
		})
	},
}

var statsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Classify tag keys as lower, lower_colon, problemchars or other",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withInput(cmd, func(ctx context.Context, in io.Reader) error {
			reports, err := stats.KeyTypes(ctx, in, newClassifier(cfg))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(w, "%-14s %d\n", r.Class, r.Count)
			}
			return nil
		})
	},
}

var statsUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the distinct contributor uids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withInput(cmd, func(ctx context.Context, in io.Reader) error {
			users, err := stats.Users(ctx, in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, u := range users {
				fmt.Fprintln(w, u)
			}
			fmt.Fprintf(w, "%d users\n", len(users))
			return nil
		})
	},
}

// withInput opens the configured input for the duration of fn.
func withInput(cmd *cobra.Command, fn func(context.Context, io.Reader) error) error {
	ctx := cmd.Context()
	override(&cfg.Input.Path, statsInput)
	if err := requireInput(cfg); err != nil {
		return err
	}

	in, err := openInput(ctx, cfg, cfg.Input.Path)
	if err != nil {
		return eris.Wrap(err, "stats: open input")
	}
	defer in.Close() //nolint:errcheck

	return fn(ctx, in)
}

func init() {
	statsCmd.PersistentFlags().StringVar(&statsInput, "input", "", "map file path or http/ftp URL")
	statsCmd.AddCommand(statsTagsCmd, statsKeysCmd, statsUsersCmd)
	rootCmd.AddCommand(statsCmd)
}
