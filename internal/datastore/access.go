package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

// Query runs a read statement with positional ? parameters and scans all rows into dest,
// which must be a pointer to a slice of structs or scalars. Outside a transaction the
// statement commits on its own.
func (ds *DataStore) Query(ctx context.Context, dest any, statement string, params ...any) error {
	start := time.Now()
	err := ds.DB.WithContext(ctx).Raw(statement, params...).Scan(dest).Error
	ds.observe(metrics.OpQuery, "raw", start, err)
	if err != nil {
		return dbError(err, "query", errors.PriorityMedium, "statement", statement)
	}
	return nil
}

// Execute runs a write statement with positional ? parameters and returns the last inserted id.
// Statements that insert nothing return the driver's last id, which may be zero.
func (ds *DataStore) Execute(ctx context.Context, statement string, params ...any) (int64, error) {
	start := time.Now()
	ds.Logger.Trace("execute", logger.String("sql", statement))

	result, err := ds.DB.WithContext(ctx).Statement.ConnPool.ExecContext(ctx, statement, params...)
	if err != nil {
		ds.observe(metrics.OpExecute, "raw", start, err)
		return 0, dbError(err, "execute", errors.PriorityMedium, "statement", statement)
	}

	id, err := result.LastInsertId()
	ds.observe(metrics.OpExecute, "raw", start, err)
	if err != nil {
		return 0, dbError(err, "last_insert_id", errors.PriorityLow, "statement", statement)
	}
	return id, nil
}

// Transaction runs fn in one database transaction. fn receives a DataStore bound to the
// transaction; returning an error rolls everything back.
func (ds *DataStore) Transaction(ctx context.Context, fn func(tx *DataStore) error) error {
	start := time.Now()
	err := ds.DB.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&DataStore{DB: gtx, Logger: ds.Logger, Metrics: ds.Metrics})
	})
	ds.observe(metrics.OpTransaction, "all", start, err)
	return err
}

// QueryRows is a typed convenience over Query.
//
//	sites, err := datastore.QueryRows[string](ctx, store, "SELECT DISTINCT study_site FROM flights")
func QueryRows[T any](ctx context.Context, store Interface, statement string, params ...any) ([]T, error) {
	var rows []T
	if err := store.Query(ctx, &rows, statement, params...); err != nil {
		return nil, err
	}
	return rows, nil
}
