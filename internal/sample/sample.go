// Package sample cuts a smaller map file out of a large one by keeping
// every k-th top-level element.
package sample

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/fetcher"
	"github.com/sells-group/osm-wrangle/internal/model"
)

// Result counts what Write saw and kept.
type Result struct {
	Seen    int
	Written int
}

// Write copies elements 0, k, 2k, ... of the nodes, ways and relations in r
// to w, wrapped in an <osm> root. Everything else in the document, bounds
// included, is left out.
func Write(ctx context.Context, r io.Reader, w io.Writer, k int) (Result, error) {
	var res Result
	if k < 1 {
		return res, eris.Errorf("sample: k must be at least 1, got %d", k)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(xml.Header + "<osm>\n"); err != nil {
		return res, eris.Wrap(err, "sample: write header")
	}

	enc := xml.NewEncoder(bw)
	er := fetcher.NewElementReader(r, model.TagNode, model.TagWay, model.TagRelation)
	for {
		el, err := er.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, eris.Wrap(err, "sample: read element")
		}

		if res.Seen%k == 0 {
			if err := enc.Encode(el); err != nil {
				er.Release(el)
				return res, eris.Wrapf(err, "sample: encode %s", el.Name())
			}
			if _, err := bw.WriteString("\n"); err != nil {
				er.Release(el)
				return res, eris.Wrap(err, "sample: write element")
			}
			res.Written++
		}
		res.Seen++
		er.Release(el)
	}

	if _, err := bw.WriteString("</osm>\n"); err != nil {
		return res, eris.Wrap(err, "sample: write footer")
	}
	if err := bw.Flush(); err != nil {
		return res, eris.Wrap(err, "sample: flush")
	}

	zap.L().Info("sample: written",
		zap.String("component", "sample"),
		zap.Int("seen", res.Seen),
		zap.Int("written", res.Written),
		zap.Int("k", k),
	)
	return res, nil
}
