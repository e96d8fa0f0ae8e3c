// Package app wires settings, logging, metrics, the catalog store, the ingestion pipeline and the
// catalog facade for the vistool commands.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/ingest"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability"
)

// App holds the components shared by the commands.
type App struct {
	Settings *conf.Settings
	Logger   logger.Logger
	Metrics  *observability.Metrics
	Store    datastore.Interface
	Pipeline *ingest.Pipeline
	Catalog  *catalog.Catalog

	central *logger.CentralLogger
}

// Open builds the components and opens the catalog store. The schema is not touched;
// call Bootstrap or Store.Initialize before querying.
func Open(settings *conf.Settings) (*App, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := central.Module("vistool")

	m, err := observability.NewMetrics()
	if err != nil {
		_ = central.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	opts, err := ingest.OptionsFromSettings(settings)
	if err != nil {
		_ = central.Close()
		return nil, err
	}

	store, err := datastore.New(settings, log, m.Catalog)
	if err != nil {
		_ = central.Close()
		return nil, err
	}
	if err := store.Open(); err != nil {
		_ = central.Close()
		return nil, err
	}

	a := &App{
		Settings: settings,
		Logger:   log,
		Metrics:  m,
		Store:    store,
		Pipeline: ingest.NewPipeline(store, opts, log, m.Ingest),
		Catalog: catalog.New(store, catalog.Options{
			Root:         opts.Root,
			OrthoPattern: settings.Ingest.OrthoPattern,
			CacheTTL:     settings.WebServer.CacheTTL,
		}, log, m.Catalog),
		central: central,
	}
	log.Debug("components initialized",
		logger.String("data_root", opts.Root),
		logger.String("catalog_type", settings.Catalog.Type),
		logger.String("version", settings.Version))
	return a, nil
}

// Bootstrap creates the schema of an empty catalog and ingests the data root into it.
// When an ingestion ran its report is printed to w.
func (a *App) Bootstrap(ctx context.Context, w io.Writer) error {
	report, err := ingest.Bootstrap(ctx, a.Store, a.Pipeline)
	if err != nil {
		return err
	}
	if report != nil && w != nil {
		report.Print(w)
	}
	return nil
}

// Close closes the store and flushes the logs.
func (a *App) Close() error {
	err := a.Store.Close()
	if cerr := a.central.Close(); err == nil {
		err = cerr
	}
	return err
}
