// Package pipeline drives a run: it pulls elements from a source, shapes
// them, optionally validates the records and hands them to a sink.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/metrics"
	"github.com/sells-group/osm-wrangle/internal/model"
	"github.com/sells-group/osm-wrangle/internal/shape"
	"github.com/sells-group/osm-wrangle/internal/sink"
	"github.com/sells-group/osm-wrangle/internal/validate"
)

// Source yields top-level elements one at a time. Next returns io.EOF after
// the last element. Release hands an element's storage back once the driver
// is done with it.
type Source interface {
	Next(ctx context.Context) (*model.Element, error)
	Release(el *model.Element)
}

// Validator checks a shaped record before it is written.
type Validator interface {
	Validate(rec model.Record) error
}

// Driver runs the shaping pipeline. A Driver is good for one Run.
type Driver struct {
	source    Source
	shaper    *shape.Shaper
	sink      sink.Sink
	validator Validator
	metrics   *metrics.Run

	abortOnInvalid bool
	runID          string
}

// Option configures a Driver.
type Option func(*Driver)

// WithValidator validates every record before it reaches the sink.
func WithValidator(v Validator) Option {
	return func(d *Driver) { d.validator = v }
}

// WithAbortOnInvalid makes a validation failure end the run instead of
// skipping the element.
func WithAbortOnInvalid(abort bool) Option {
	return func(d *Driver) { d.abortOnInvalid = abort }
}

// WithMetrics records counters on m instead of a private set.
func WithMetrics(m *metrics.Run) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithRunID sets the id carried in log fields and the summary.
func WithRunID(id string) Option {
	return func(d *Driver) { d.runID = id }
}

// New returns a Driver reading from src, shaping with sh and writing to snk.
func New(src Source, sh *shape.Shaper, snk sink.Sink, opts ...Option) *Driver {
	d := &Driver{source: src, shaper: sh, sink: snk}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewRun()
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	return d
}

// Metrics returns the run's counters.
func (d *Driver) Metrics() *metrics.Run { return d.metrics }

// Run processes every element of the source. Elements that cannot be shaped
// or fail validation are skipped and counted; the returned error is reserved
// for source, sink and cancellation failures and for validation failures
// under WithAbortOnInvalid. The summary is valid even when err is not nil.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := newSummary(d.runID)
	log := zap.L().With(zap.String("component", "pipeline.driver"), zap.String("run_id", d.runID))
	log.Info("pipeline: run started")

	finish := func() {
		sum.Duration = time.Since(start)
		d.metrics.ObserveDuration(sum.Duration)
	}

	for {
		if err := ctx.Err(); err != nil {
			finish()
			return sum, eris.Wrap(err, "pipeline: run cancelled")
		}

		el, err := d.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			finish()
			return sum, eris.Wrap(err, "pipeline: read element")
		}

		err = d.process(el, sum, log)
		d.source.Release(el)
		if err != nil {
			finish()
			return sum, err
		}
	}

	finish()
	log.Info("pipeline: run complete", sum.Fields()...)
	return sum, nil
}

func (d *Driver) process(el *model.Element, sum *Summary, log *zap.Logger) error {
	d.metrics.Elements.WithLabelValues(el.Name()).Inc()

	res, err := d.shaper.Shape(el)
	if err != nil {
		reason := skipReason(err)
		if reason == "" {
			return eris.Wrap(err, "pipeline: shape element")
		}
		d.skipElement(sum, reason)
		id, _ := el.Attr("id")
		log.Warn("pipeline: element skipped",
			zap.String("kind", el.Name()),
			zap.String("id", id),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil
	}

	rec := res.Record
	for _, tag := range res.Dropped {
		sum.Dropped++
		d.metrics.AnnotationsSkipped.WithLabelValues(metrics.ReasonDropped).Inc()
		log.Debug("pipeline: tag dropped",
			zap.Int64("id", rec.EntityID()),
			zap.String("key", tag.Key),
		)
	}
	for _, tag := range res.Malformed {
		sum.Malformed++
		d.metrics.AnnotationsSkipped.WithLabelValues(metrics.ReasonMalformed).Inc()
		log.Warn("pipeline: tag skipped",
			zap.Int64("id", rec.EntityID()),
			zap.String("key", tag.Key),
			zap.String("value", tag.Value),
			zap.Error(tag.Err),
		)
	}

	if d.validator != nil {
		if err := d.validator.Validate(rec); err != nil {
			if d.abortOnInvalid {
				return eris.Wrapf(err, "pipeline: %s %d failed validation", rec.Kind(), rec.EntityID())
			}
			d.skipElement(sum, metrics.ReasonValidation)
			log.Warn("pipeline: element failed validation",
				zap.String("kind", string(rec.Kind())),
				zap.Int64("id", rec.EntityID()),
				zap.Error(err),
			)
			return nil
		}
	}

	if err := d.sink.Write(rec); err != nil {
		return eris.Wrapf(err, "pipeline: write %s %d", rec.Kind(), rec.EntityID())
	}
	d.count(rec, sum)
	return nil
}

func (d *Driver) skipElement(sum *Summary, reason string) {
	sum.Skipped[reason]++
	d.metrics.ElementsSkipped.WithLabelValues(reason).Inc()
}

func (d *Driver) count(rec model.Record, sum *Summary) {
	switch r := rec.(type) {
	case *model.PointRecord:
		sum.Points++
		sum.Annotations += int64(len(r.Tags))
		d.metrics.Rows.WithLabelValues(model.NodesTable.Name).Inc()
		d.metrics.Rows.WithLabelValues(model.NodeTagsTable.Name).Add(float64(len(r.Tags)))
	case *model.PathRecord:
		sum.Paths++
		sum.Annotations += int64(len(r.Tags))
		sum.ChildRefs += int64(len(r.Nodes))
		d.metrics.Rows.WithLabelValues(model.WaysTable.Name).Inc()
		d.metrics.Rows.WithLabelValues(model.WayNodesTable.Name).Add(float64(len(r.Nodes)))
		d.metrics.Rows.WithLabelValues(model.WayTagsTable.Name).Add(float64(len(r.Tags)))
	}
}

// skipReason maps a per-element error to its skip reason, or "" when the
// error is not a per-element one.
func skipReason(err error) string {
	var (
		missing *shape.MissingAttributeError
		invalid *shape.InvalidAttributeError
		verr    *validate.ValidationError
	)
	switch {
	case errors.Is(err, shape.ErrUnsupportedElementKind):
		return metrics.ReasonUnsupported
	case errors.As(err, &missing):
		return metrics.ReasonMissingAttr
	case errors.As(err, &invalid):
		return metrics.ReasonInvalidAttr
	case errors.As(err, &verr):
		return metrics.ReasonValidation
	default:
		return ""
	}
}
