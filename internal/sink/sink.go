// Package sink persists shaped records as table rows.
package sink

import (
	"errors"

	"github.com/sells-group/osm-wrangle/internal/model"
)

// Sink accepts one record at a time and writes its rows. Close flushes
// anything buffered and must be called once after the last Write.
type Sink interface {
	Write(rec model.Record) error
	Close() error
}

// Multi writes every record to each sink in order.
type Multi []Sink

// Write stops at the first sink that fails.
func (m Multi) Write(rec model.Record) error {
	for _, s := range m {
		if err := s.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
