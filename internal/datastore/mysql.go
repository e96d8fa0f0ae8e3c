package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/logger"
)

// MySQLStore implements Interface for a shared MySQL catalog
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func (store *MySQLStore) dsn() string {
	cfg := store.Settings.Catalog.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// Open connects to the MySQL catalog. Any failure is reported as storage unavailable.
func (store *MySQLStore) Open() error {
	cfg := store.Settings.Catalog.MySQL
	target := fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(store.dsn()), store.gormConfig(store.Settings.Catalog.SlowQueryThreshold))
	if err != nil {
		store.Logger.Error("failed to open MySQL catalog",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Error(err))
		return storageUnavailable(err, "mysql", target)
	}

	store.DB = db
	store.Logger.Debug("mysql catalog opened", logger.String("target", target))
	return nil
}
