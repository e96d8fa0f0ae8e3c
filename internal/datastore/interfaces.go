// Package datastore persists the flight/camera/image catalog with GORM on SQLite or MySQL.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

// Interface defines the catalog storage operations used by ingestion and the catalog facade.
type Interface interface {
	Open() error
	Close() error
	// Initialize creates the schema when the catalog has no tables and reports whether it did.
	Initialize(ctx context.Context) (bool, error)

	Query(ctx context.Context, dest any, statement string, params ...any) error
	Execute(ctx context.Context, statement string, params ...any) (int64, error)
	Transaction(ctx context.Context, fn func(tx *DataStore) error) error

	RegisterFlight(ctx context.Context, studySite, date, path string) (int64, bool, error)
	RegisterCamera(ctx context.Context, name string) (int64, bool, error)
	UpsertImagePaths(ctx context.Context, kind PathKind, paths []ImagePath) error
	ApplyPositions(ctx context.Context, flightID int64, positions []Position) (int, error)

	StudySites(ctx context.Context) ([]string, error)
	Dates(ctx context.Context, studySite string) ([]string, error)
	CameraNames(ctx context.Context, studySite, date string) ([]string, error)
	CameraID(ctx context.Context, name string) (int64, error)
	FlightByKey(ctx context.Context, studySite, date string) (*Flight, error)
	FlightByID(ctx context.Context, id int64) (*Flight, error)
	Image(ctx context.Context, id int64) (*Image, error)
	ImageCoordinates(ctx context.Context, flightID, cameraID int64) ([]ImageCoordinate, error)
	UpdateImagePaths(ctx context.Context, id int64, rawPath, jpgPath *string) error
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// DataStore implements Interface on a GORM database. Backends embed it and provide Open.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	Logger  logger.Logger
	Metrics *metrics.CatalogMetrics
}

// New creates the catalog store selected by settings.Catalog.Type. Open must be called before use.
func New(settings *conf.Settings, log logger.Logger, m *metrics.CatalogMetrics) (Interface, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	base := DataStore{Logger: log.Module("datastore"), Metrics: m}

	switch settings.Catalog.Type {
	case conf.CatalogSQLite, "":
		return &SQLiteStore{DataStore: base, Settings: settings}, nil
	case conf.CatalogMySQL:
		return &MySQLStore{DataStore: base, Settings: settings}, nil
	default:
		return nil, validationError("unsupported catalog type", "catalog.type", settings.Catalog.Type)
	}
}

// gormConfig returns the shared GORM configuration with the catalog logger attached
func (ds *DataStore) gormConfig(slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.NewGormLoggerAdapter(ds.Logger, slowThreshold),
		SkipDefaultTransaction: true,
	}
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return dbError(errors.NewStd("database connection is not initialized"), "close", errors.PriorityLow)
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", errors.PriorityLow)
	}

	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", errors.PriorityMedium)
	}

	ds.Logger.Debug("catalog connection closed")
	return nil
}

// Initialize creates the catalog schema when the database contains no tables at all.
// When some tables exist the schema is migrated in place and false is returned.
func (ds *DataStore) Initialize(ctx context.Context) (bool, error) {
	start := time.Now()
	db := ds.DB.WithContext(ctx)

	tables, err := db.Migrator().GetTables()
	if err != nil {
		ds.observe(metrics.OpSchemaInit, "all", start, err)
		return false, dbError(err, "list_tables", errors.PriorityCritical)
	}
	created := len(tables) == 0

	if err := db.AutoMigrate(catalogModels()...); err != nil {
		ds.observe(metrics.OpSchemaInit, "all", start, err)
		return false, dbError(err, "auto_migrate", errors.PriorityCritical)
	}

	ds.observe(metrics.OpSchemaInit, "all", start, nil)
	if created {
		ds.Logger.Info("catalog schema created", logger.Duration("elapsed", time.Since(start)))
	}
	return created, nil
}

// observe records the outcome of one operation in the catalog metrics
func (ds *DataStore) observe(operation, table string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		ds.Metrics.RecordDbOperationError(operation, table, string(errorCategory(err)))
	}
	ds.Metrics.RecordDbOperation(operation, table, status, time.Since(start))
}

func errorCategory(err error) errors.ErrorCategory {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return errors.CategoryDatabase
}
