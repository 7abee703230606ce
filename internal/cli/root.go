// Package cli implements the aftershock command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/aftershock-catalog/internal/adapter/csvfile"
	"github.com/couchcryptid/aftershock-catalog/internal/adapter/mapbox"
	"github.com/couchcryptid/aftershock-catalog/internal/config"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/couchcryptid/aftershock-catalog/internal/observability"
	"github.com/couchcryptid/aftershock-catalog/internal/pipeline"
)

// errRejected is returned when at least one catalog failed validation. The
// violation report has already been written by then.
var errRejected = errors.New("one or more catalogs were rejected")

// app carries the state shared by every subcommand once the root command has
// loaded configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	schema *domain.Schema

	// newMetrics builds the metric set; tests swap in unregistered metrics.
	newMetrics func() *observability.Metrics
	metrics    *observability.Metrics

	schemaPath string
	mainShock  string
}

// Execute runs the root command with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{newMetrics: observability.NewMetrics})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "aftershock",
		Short: "Validate, analyse and publish aftershock catalogs",
		Long: `aftershock checks contributed aftershock catalogs against the catalog schema,
plots and compares accepted catalogs, and hands them on to downstream stores.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.schemaPath, "schema", "", "JSON schema file (default: embedded schema, or SCHEMA_PATH)")
	root.PersistentFlags().StringVar(&a.mainShock, "main-shock", "", "main-shock origin time, ISO 8601 UTC (default: from schema, or MAINSHOCK_TIME)")

	root.AddCommand(
		a.templateCommand(),
		a.schemaCommand(),
		a.validateCommand(),
		a.visualizeCommand(),
		a.compareCommand(),
		a.enrichCommand(),
		a.publishCommand(),
		a.serveCommand(),
	)
	return root
}

// setup loads configuration, the logger and the active schema. Flags win
// over environment variables.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.schemaPath != "" {
		cfg.SchemaPath = a.schemaPath
	}
	if a.mainShock != "" {
		t, err := domain.ParseDatetime(a.mainShock)
		if err != nil {
			return fmt.Errorf("invalid --main-shock: %w", err)
		}
		cfg.MainShock = t
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	schema, err := loadSchema(cfg.SchemaPath)
	if err != nil {
		return err
	}
	if !cfg.MainShock.IsZero() {
		schema = schema.WithMainShock(cfg.MainShock)
	}
	a.schema = schema
	a.logger.Debug("schema loaded", "id", schema.ID, "version", schema.Version, "main_shock", schema.MainShock())
	return nil
}

func loadSchema(path string) (*domain.Schema, error) {
	if path == "" {
		return domain.DefaultSchema()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	s, err := domain.LoadSchema(f)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	return s, nil
}

func (a *app) getMetrics() *observability.Metrics {
	if a.metrics == nil {
		a.metrics = a.newMetrics()
	}
	return a.metrics
}

// geocoder returns the cached Mapbox geocoder, or nil when geocoding is off.
func (a *app) geocoder() domain.Geocoder {
	m := a.getMetrics()
	if !a.cfg.MapboxEnabled {
		m.GeocodeEnabled.Set(0)
		a.logger.Info("mapbox geocoding disabled")
		return nil
	}
	m.GeocodeEnabled.Set(1)
	client := mapbox.NewClient(a.cfg.MapboxToken, a.cfg.MapboxTimeout, m, a.logger)
	a.logger.Info("mapbox geocoding enabled", "cache_size", a.cfg.MapboxCacheSize, "timeout", a.cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, a.cfg.MapboxCacheSize, m)
}

func (a *app) pipeline(geocoder domain.Geocoder, loaders ...pipeline.Loader) *pipeline.Pipeline {
	return pipeline.New(domain.NewValidator(a.schema, nil), geocoder, loaders, a.logger, a.getMetrics())
}

// accept runs one file through p. A rejected file gets its violation report
// written to w and yields errRejected.
func accept(ctx context.Context, p *pipeline.Pipeline, path string, w io.Writer) (pipeline.Outcome, error) {
	out, err := p.Run(ctx, csvfile.NewReader(path))
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	if !out.Accepted {
		writeReport(w, path, out.Result)
		return out, errRejected
	}
	return out, nil
}

// loadCatalogs validates each file and returns the accepted catalogs in
// argument order. Every file is checked before an error is returned.
func (a *app) loadCatalogs(cmd *cobra.Command, paths []string) ([]domain.Catalog, error) {
	p := a.pipeline(nil)
	catalogs := make([]domain.Catalog, 0, len(paths))
	var errs []error
	for _, path := range paths {
		out, err := accept(cmd.Context(), p, path, cmd.ErrOrStderr())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		catalogs = append(catalogs, out.Catalog)
	}
	if len(errs) > 0 {
		return nil, joinRejections(errs)
	}
	return catalogs, nil
}

// joinRejections collapses repeated errRejected into one.
func joinRejections(errs []error) error {
	var out []error
	rejected := false
	for _, err := range errs {
		if errors.Is(err, errRejected) {
			if rejected {
				continue
			}
			rejected = true
		}
		out = append(out, err)
	}
	return errors.Join(out...)
}
