package main

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangle/internal/audit"
	"github.com/sells-group/osm-wrangle/internal/config"
	"github.com/sells-group/osm-wrangle/internal/fetcher"
	"github.com/sells-group/osm-wrangle/internal/tags"
)

// openInput opens a local path or http/ftp URL with the fetch settings.
func openInput(ctx context.Context, c *config.Config, location string) (io.ReadCloser, error) {
	return fetcher.Open(ctx, location, fetcher.OpenOptions{
		HTTP: fetcher.HTTPOptions{
			UserAgent:  c.Fetch.UserAgent,
			Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: c.Fetch.MaxRetries,
			RatePerSec: c.Fetch.RatePerSec,
		},
	})
}

func newClassifier(c *config.Config) *tags.Classifier {
	return tags.NewClassifier(c.Shape.ProblemChars, c.Shape.DefaultType)
}

// newCorrector builds the value corrector, classifying the configured street
// and fix-date keys with the same classifier the shaper uses.
func newCorrector(c *config.Config, cls *tags.Classifier) (*audit.Corrector, error) {
	corrections, err := c.StreetCorrections()
	if err != nil {
		return nil, err
	}
	clock, err := c.Shape.Clock()
	if err != nil {
		return nil, err
	}
	return audit.NewCorrector(corrections,
		audit.WithStreetField(fieldOf(cls, c.Shape.StreetField)),
		audit.WithFixDateField(fieldOf(cls, c.Shape.FixDateField)),
		audit.WithClock(clock),
	), nil
}

func fieldOf(cls *tags.Classifier, raw string) audit.Field {
	typ, key := cls.Classify(raw)
	return audit.Field{Type: typ, Key: key}
}

// override replaces *dst with a flag value when the flag was given.
func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func requireInput(c *config.Config) error {
	if err := c.Validate("input"); err != nil {
		return eris.Wrap(err, "pass --input or set input.path")
	}
	return nil
}
