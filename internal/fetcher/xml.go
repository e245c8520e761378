package fetcher

import (
	"context"
	"encoding/xml"
	"io"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/osm-wrangle/internal/model"
)

// NewXMLDecoder returns a decoder that understands any charset declared in
// the document's XML header.
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder
}

// StreamXML decodes XML elements matching the given local name and sends them to a channel.
// The type parameter T must be a struct with appropriate xml tags.
// Both channels are closed when processing completes.
func StreamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := NewXMLDecoder(r)
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

// ElementReader pulls top-level elements from an OSM document one at a time.
// Only the current element's subtree is held in memory. Elements handed out
// by Next should be given back with Release once the caller is done with
// them, so their storage can be reused for the next element.
type ElementReader struct {
	decoder *xml.Decoder
	names   map[string]bool
	pool    sync.Pool
}

// NewElementReader returns a reader yielding elements whose tag name is one
// of names. With no names it yields nodes and ways.
func NewElementReader(r io.Reader, names ...string) *ElementReader {
	if len(names) == 0 {
		names = []string{model.TagNode, model.TagWay}
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &ElementReader{
		decoder: NewXMLDecoder(r),
		names:   set,
		pool:    sync.Pool{New: func() any { return new(model.Element) }},
	}
}

// Next returns the next matching element, or io.EOF when the document ends.
func (er *ElementReader) Next(ctx context.Context) (*model.Element, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "xml: context cancelled")
		}

		tok, err := er.decoder.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, eris.Wrap(err, "xml: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || !er.names[se.Name.Local] {
			continue
		}

		el := er.pool.Get().(*model.Element)
		if err := er.decoder.DecodeElement(el, &se); err != nil {
			er.Release(el)
			return nil, eris.Wrapf(err, "xml: decode %s", se.Name.Local)
		}
		return el, nil
	}
}

// Release returns el's storage to the reader. el must not be used afterwards.
func (er *ElementReader) Release(el *model.Element) {
	if el == nil {
		return
	}
	el.Reset()
	er.pool.Put(el)
}
