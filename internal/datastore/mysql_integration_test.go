//go:build integration

package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/logger"
)

// TestMySQLStore_RoundTrip runs the catalog against a throwaway MySQL server.
// Requires Docker: go test -tags integration ./internal/datastore/
func TestMySQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("vistool"),
		tcmysql.WithUsername("vistool"),
		tcmysql.WithPassword("vistool"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Catalog.Type = conf.CatalogMySQL
	settings.Catalog.MySQL.Host = host
	settings.Catalog.MySQL.Port = port.Port()
	settings.Catalog.MySQL.Database = "vistool"
	settings.Catalog.MySQL.Username = "vistool"
	settings.Catalog.MySQL.Password = "vistool"

	store, err := New(settings, logger.NewSlogLogger(nil, logger.LogLevelInfo, nil), nil)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	created, err := store.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	flightID, _, err := store.RegisterFlight(ctx, "Meise-A", "20230615", "Meise/20230615/A")
	require.NoError(t, err)
	again, created, err := store.RegisterFlight(ctx, "Meise-A", "20230615", "Meise/20230615/A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, flightID, again)

	cameraID, _, err := store.RegisterCamera(ctx, "sony")
	require.NoError(t, err)

	require.NoError(t, store.UpsertImagePaths(ctx, PathRaw, []ImagePath{
		{FlightID: flightID, CameraID: cameraID, Label: "DSC00001", Path: "Meise/20230615/A/sony/DSC00001.ARW"},
	}))
	require.NoError(t, store.UpsertImagePaths(ctx, PathJPG, []ImagePath{
		{FlightID: flightID, CameraID: cameraID, Label: "DSC00001", Path: "Meise/20230615/A/sony/DSC00001.JPG"},
	}))

	applied, err := store.ApplyPositions(ctx, flightID, []Position{{Label: "DSC00001", Easting: 1, Northing: 2, Yaw: 3}})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	coords, err := store.ImageCoordinates(ctx, flightID, cameraID)
	require.NoError(t, err)
	require.Len(t, coords, 1)

	img, err := store.Image(ctx, coords[0].ID)
	require.NoError(t, err)
	require.NotNil(t, img.RawPath)
	require.NotNil(t, img.JpgPath)
	assert.InDelta(t, 3.0, *img.Yaw, 1e-9)
}
