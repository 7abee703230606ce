package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/couchcryptid/aftershock-catalog/internal/observability"
)

// Extractor reads one submission from its source.
type Extractor interface {
	Extract(ctx context.Context) (domain.Submission, error)
}

// Loader writes an accepted catalog to its destination.
type Loader interface {
	Load(ctx context.Context, catalog domain.Catalog) error
}

// Submission outcomes, as used for the metrics label.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Outcome is the result of processing one submission.
type Outcome struct {
	Result   domain.Result
	Catalog  domain.Catalog // set only when accepted
	Accepted bool
}

// Pipeline runs submissions through validation, optional geocoding
// enrichment, and every configured loader.
type Pipeline struct {
	validator *domain.Validator
	geocoder  domain.Geocoder
	loaders   []Loader
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. geocoder may be nil to skip enrichment.
func New(v *domain.Validator, geocoder domain.Geocoder, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		validator: v,
		geocoder:  geocoder,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a schema is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.validator == nil || p.validator.Schema() == nil {
		return errors.New("no schema loaded")
	}
	return nil
}

// Run extracts one submission and processes it.
func (p *Pipeline) Run(ctx context.Context, e Extractor) (Outcome, error) {
	sub, err := e.Extract(ctx)
	if err != nil {
		p.metrics.Submissions.WithLabelValues(OutcomeError).Inc()
		return Outcome{}, fmt.Errorf("extract: %w", err)
	}
	return p.Process(ctx, sub)
}

// Process validates a submission. A header that disagrees with the schema is
// returned as an error. Row violations are not an error: they come back in
// the outcome and no loader is called. An accepted catalog is enriched and
// handed to every loader in order; the first loader failure stops the run.
func (p *Pipeline) Process(ctx context.Context, sub domain.Submission) (Outcome, error) {
	start := time.Now()
	res, err := p.validator.ValidateSubmission(sub)
	if err != nil {
		p.metrics.Submissions.WithLabelValues(OutcomeInvalid).Inc()
		p.logger.Warn("submission does not match schema", "catalog", sub.Name, "error", err)
		return Outcome{}, err
	}
	p.metrics.ValidationDuration.Observe(time.Since(start).Seconds())
	p.metrics.RowsValidated.Add(float64(res.Rows))
	for _, v := range res.Violations {
		p.metrics.Violations.WithLabelValues(string(v.Kind)).Inc()
	}

	catalog, err := res.Catalog(sub.Name)
	if err != nil {
		p.metrics.Submissions.WithLabelValues(OutcomeRejected).Inc()
		p.logger.Info("submission rejected",
			"catalog", sub.Name,
			"rows", res.Rows,
			"violations", len(res.Violations),
			"offending_rows", len(res.ByRow()),
		)
		return Outcome{Result: res}, nil
	}

	catalog = domain.EnrichCatalog(ctx, catalog, p.geocoder, p.logger)

	for _, l := range p.loaders {
		name := loaderName(l)
		if err := l.Load(ctx, catalog); err != nil {
			p.metrics.Submissions.WithLabelValues(OutcomeError).Inc()
			p.logger.Error("load catalog failed", "catalog", catalog.Name, "loader", name, "error", err)
			return Outcome{Result: res}, fmt.Errorf("load %s: %w", name, err)
		}
		p.metrics.RecordsLoaded.WithLabelValues(name).Add(float64(catalog.Len()))
	}

	p.metrics.Submissions.WithLabelValues(OutcomeAccepted).Inc()
	p.logger.Info("submission accepted", "catalog", catalog.Name, "records", catalog.Len())
	return Outcome{Result: res, Catalog: catalog, Accepted: true}, nil
}

func loaderName(l Loader) string {
	if n, ok := l.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", l)
}

// Schema returns the schema submissions are validated against.
func (p *Pipeline) Schema() *domain.Schema {
	if p.validator == nil {
		return nil
	}
	return p.validator.Schema()
}
