package datastore

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/logger"
)

// SQLiteStore implements Interface for a single-file SQLite catalog
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// sqliteDSNOptions enables foreign keys and waits on a locked file instead of failing immediately
const sqliteDSNOptions = "?_foreign_keys=on&_busy_timeout=5000"

// Open opens the SQLite catalog file, creating its directory when needed.
// Any failure is reported as storage unavailable.
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Catalog.SQLite.Path)
	if dir == "" {
		dir = "."
	}
	basePath, err := conf.GetBasePath(dir)
	if err != nil {
		return storageUnavailable(err, "sqlite", store.Settings.Catalog.SQLite.Path)
	}
	absoluteFilePath := filepath.Join(basePath, fileName)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath+sqliteDSNOptions), store.gormConfig(store.Settings.Catalog.SlowQueryThreshold))
	if err != nil {
		return storageUnavailable(err, "sqlite", absoluteFilePath)
	}

	// One writer; a single connection keeps the catalog handle shared for the process.
	sqlDB, err := db.DB()
	if err != nil {
		return storageUnavailable(err, "sqlite", absoluteFilePath)
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	store.Logger.Debug("sqlite catalog opened", logger.String("path", absoluteFilePath))
	return nil
}
