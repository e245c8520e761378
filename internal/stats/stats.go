// Package stats surveys a map file without shaping it: tag-name counts,
// key shapes, contributors and street/fix-date audits.
package stats

import (
	"context"
	"encoding/xml"
	"io"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangle/internal/fetcher"
)

// TagCount is the number of elements with one tag name.
type TagCount struct {
	Name  string
	Count int
}

// CountTags counts every element in the document by tag name, nested ones
// included. The result is sorted by descending count, then name.
func CountTags(ctx context.Context, r io.Reader) ([]TagCount, error) {
	counts := make(map[string]int)
	err := scan(ctx, r, func(se xml.StartElement) {
		counts[se.Name.Local]++
	})
	if err != nil {
		return nil, err
	}

	out := make([]TagCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Users returns the distinct contributor uids found on any element, sorted.
func Users(ctx context.Context, r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	err := scan(ctx, r, func(se xml.StartElement) {
		for _, a := range se.Attr {
			if a.Name.Local == "uid" {
				seen[a.Value] = struct{}{}
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for uid := range seen {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

// scan calls fn for every start element of the document.
func scan(ctx context.Context, r io.Reader, fn func(xml.StartElement)) error {
	decoder := fetcher.NewXMLDecoder(r)
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "stats: context cancelled")
			}
		}
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "stats: read token")
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(se)
		}
	}
}
