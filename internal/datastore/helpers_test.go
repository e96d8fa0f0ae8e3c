package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/logger"
)

// newTestStore opens an initialized SQLite catalog in a temporary directory.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Catalog.Type = conf.CatalogSQLite
	settings.Catalog.SQLite.Path = filepath.Join(t.TempDir(), "catalog.db")

	store, err := New(settings, logger.NewSlogLogger(nil, logger.LogLevelInfo, nil), nil)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	created, err := store.Initialize(context.Background())
	require.NoError(t, err)
	require.True(t, created, "fresh catalog must report schema creation")

	sqliteStore, ok := store.(*SQLiteStore)
	require.True(t, ok, "sqlite settings must yield *SQLiteStore")
	return sqliteStore
}

// seedFlight registers a flight and a camera and returns their ids.
func seedFlight(t *testing.T, store Interface, site, date, camera string) (flightID, cameraID int64) {
	t.Helper()
	ctx := context.Background()

	flightID, _, err := store.RegisterFlight(ctx, site, date, "loc/"+date+"/sub")
	require.NoError(t, err)
	cameraID, _, err = store.RegisterCamera(ctx, camera)
	require.NoError(t, err)
	return flightID, cameraID
}

func strPtr(s string) *string { return &s }
