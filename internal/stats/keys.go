package stats

import (
	"context"
	"io"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangle/internal/fetcher"
	"github.com/sells-group/osm-wrangle/internal/model"
	"github.com/sells-group/osm-wrangle/internal/tags"
)

// KeyClassReport is how many tag keys fell into one class, and which.
type KeyClassReport struct {
	Class tags.KeyClass
	Count int
	Keys  []string // distinct, sorted
}

// KeyTypes classifies the k attribute of every tag element in the document.
// The result has one entry per class, in the order the classes are checked.
func KeyTypes(ctx context.Context, r io.Reader, c *tags.Classifier) ([]KeyClassReport, error) {
	classes := []tags.KeyClass{tags.KeyLower, tags.KeyLowerColon, tags.KeyProblemChars, tags.KeyOther}
	counts := make(map[tags.KeyClass]int, len(classes))
	keys := make(map[tags.KeyClass]map[string]struct{}, len(classes))
	for _, cl := range classes {
		keys[cl] = make(map[string]struct{})
	}

	tagCh, errCh := fetcher.StreamXML[model.Child](ctx, r, model.TagTag)
	for tag := range tagCh {
		k, ok := tag.Attr("k")
		if !ok {
			continue
		}
		cl := c.ClassOf(k)
		counts[cl]++
		keys[cl][k] = struct{}{}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "stats: key types")
	}

	out := make([]KeyClassReport, len(classes))
	for i, cl := range classes {
		list := make([]string, 0, len(keys[cl]))
		for k := range keys[cl] {
			list = append(list, k)
		}
		sort.Strings(list)
		out[i] = KeyClassReport{Class: cl, Count: counts[cl], Keys: list}
	}
	return out, nil
}
