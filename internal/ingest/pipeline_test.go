package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
)

func newCatalog(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Catalog.Type = conf.CatalogSQLite
	settings.Catalog.SQLite.Path = filepath.Join(t.TempDir(), "catalog.db")

	store, err := datastore.New(settings, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestPipeline(store datastore.Interface, root string) *Pipeline {
	return NewPipeline(store, Options{
		Root:            root,
		Cameras:         []string{"sony", "canon", "Mavic2Pro"},
		RawExtensions:   []string{"ARW", "DNG"},
		JPEGExtensions:  []string{"JPG", "jpg"},
		PositionPattern: "CamPos*.txt",
		Workers:         2,
	}, logger.NewSlogLogger(nil, logger.LogLevelDebug, nil), nil)
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Waarmaarde/20220428/block/sony/RAW/DSC001.ARW": "",
		"Waarmaarde/20220428/block/sony/RAW/DSC002.ARW": "",
		"Waarmaarde/20220428/block/sony/JPG/DSC001.JPG": "",
		"Waarmaarde/20220428/block/canon/IMG_001.jpg":   "",
		"Waarmaarde/20220428/block/CamPos_block.txt": camPosHeader +
			"DSC001.JPG,10.0,20.0,5.0,90.0,0,0\n" +
			"DSC999.JPG,1,2,3,4,0,0\n",
		"Waarmaarde/20220428/sinus/sony/DSC010.DNG": "",
	})
	return root
}

type imageState struct {
	Label    string
	RawPath  *string
	JpgPath  *string
	Easting  *float64
	Northing *float64
	Altitude *float64
	Yaw      *float64
}

func snapshot(t *testing.T, store datastore.Interface) []imageState {
	t.Helper()
	rows, err := datastore.QueryRows[imageState](context.Background(), store,
		"SELECT label, raw_path, jpg_path, epsg3812_easting AS easting, epsg3812_northing AS northing, altitude, yaw FROM images ORDER BY flight_id, label")
	require.NoError(t, err)
	return rows
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()
	root := sampleTree(t)
	store := newCatalog(t)
	ctx := context.Background()

	created, err := store.Initialize(ctx)
	require.NoError(t, err)
	require.True(t, created)

	report, err := newTestPipeline(store, root).Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.CameraFolders)
	// "Waarmaarde-block" and "Waarmaarde-sinus" on the same date are two flights
	assert.Equal(t, 2, report.FlightsCreated)
	assert.Equal(t, 2, report.CamerasCreated)
	assert.Equal(t, 3, report.RawFiles)
	assert.Equal(t, 2, report.JPEGFiles)
	assert.Equal(t, 1, report.PositionFiles)
	assert.Equal(t, 2, report.PositionRows)
	assert.Equal(t, 1, report.PositionsApplied)
	assert.Equal(t, 1, report.PositionsUnmatched)

	// canon has no RAW, sinus/sony has no JPEG, sinus has no position file
	assert.Equal(t, 1, report.WarningCount(WarnMissingRawImages))
	assert.Equal(t, 1, report.WarningCount(WarnMissingJPEGImages))
	require.Equal(t, 1, report.WarningCount(WarnMissingPositionFile))
	for _, w := range report.Warnings {
		switch w.Kind {
		case WarnMissingPositionFile:
			assert.ErrorIs(t, w.Err, errors.ErrMissingPositionFile)
			assert.Equal(t, filepath.Join(root, "Waarmaarde", "20220428", "sinus"), w.Path)
		default:
			assert.ErrorIs(t, w.Err, errors.ErrMissingImageSet)
		}
	}

	flight, err := store.FlightByKey(ctx, "Waarmaarde-block", "20220428")
	require.NoError(t, err)
	assert.Equal(t, "Waarmaarde/20220428/block", flight.Path)

	cameras, err := store.CameraNames(ctx, "Waarmaarde-block", "20220428")
	require.NoError(t, err)
	assert.Equal(t, []string{"canon", "sony"}, cameras)

	sonyID, err := store.CameraID(ctx, "sony")
	require.NoError(t, err)
	coords, err := store.ImageCoordinates(ctx, flight.ID, sonyID)
	require.NoError(t, err)
	require.Len(t, coords, 2)
	assert.Equal(t, "DSC001", coords[0].Label)
	require.NotNil(t, coords[0].Easting)
	assert.InDelta(t, 10.0, *coords[0].Easting, 1e-9)
	assert.InDelta(t, 20.0, *coords[0].Northing, 1e-9)
	assert.InDelta(t, 90.0, *coords[0].Yaw, 1e-9)
	assert.Nil(t, coords[1].Easting)

	img, err := store.Image(ctx, coords[0].ID)
	require.NoError(t, err)
	require.NotNil(t, img.RawPath)
	require.NotNil(t, img.JpgPath)
	assert.Equal(t, "Waarmaarde/20220428/block/sony/RAW/DSC001.ARW", *img.RawPath)
	assert.Equal(t, "Waarmaarde/20220428/block/sony/JPG/DSC001.JPG", *img.JpgPath)
	require.NotNil(t, img.Altitude)
	assert.InDelta(t, 5.0, *img.Altitude, 1e-9)
}

func TestPipelineRun_Idempotent(t *testing.T) {
	t.Parallel()
	root := sampleTree(t)
	store := newCatalog(t)
	ctx := context.Background()
	_, err := store.Initialize(ctx)
	require.NoError(t, err)

	pipeline := newTestPipeline(store, root)
	_, err = pipeline.Run(ctx)
	require.NoError(t, err)
	countsBefore, err := store.TableCounts(ctx)
	require.NoError(t, err)
	before := snapshot(t, store)

	second, err := pipeline.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.FlightsCreated)
	assert.Equal(t, 2, second.FlightsReused)
	assert.Zero(t, second.CamerasCreated)
	assert.Equal(t, 2, second.CamerasReused)

	countsAfter, err := store.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, countsBefore, countsAfter)
	assert.Equal(t, before, snapshot(t, store))
}

func TestPipelineRun_LaterJPEGMergesIntoRawRow(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"L/20230101/S/sony/DSC001.ARW": ""})
	store := newCatalog(t)
	ctx := context.Background()
	_, err := store.Initialize(ctx)
	require.NoError(t, err)

	pipeline := newTestPipeline(store, root)
	_, err = pipeline.Run(ctx)
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"L/20230101/S/sony/DSC001.JPG": ""})
	_, err = pipeline.Run(ctx)
	require.NoError(t, err)

	rows := snapshot(t, store)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].RawPath)
	require.NotNil(t, rows[0].JpgPath)
	assert.Equal(t, "L/20230101/S/sony/DSC001.ARW", *rows[0].RawPath)
	assert.Equal(t, "L/20230101/S/sony/DSC001.JPG", *rows[0].JpgPath)
}

func TestPipelineRun_InvalidPositionFileIsAWarning(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"L/20230101/S/sony/DSC001.JPG": "",
		"L/20230101/S/CamPos.txt":      "banner\nno,useful,columns\n",
	})
	store := newCatalog(t)
	ctx := context.Background()
	_, err := store.Initialize(ctx)
	require.NoError(t, err)

	report, err := newTestPipeline(store, root).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.WarningCount(WarnInvalidPositionFile))
	assert.Zero(t, report.PositionFiles)
}

func TestPipelineRun_UnalignedRowsKeepOtherPositions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"L/20230101/S/sony/DSC001.JPG": "",
		"L/20230101/S/sony/DSC002.JPG": "",
		"L/20230101/S/CamPos.txt": camPosHeader +
			"DSC001.JPG,10.0,20.0,5.0,90.0,0,0\n" +
			"DSC002.JPG,,,,,,\n",
	})
	store := newCatalog(t)
	ctx := context.Background()
	_, err := store.Initialize(ctx)
	require.NoError(t, err)

	report, err := newTestPipeline(store, root).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.WarningCount(WarnInvalidPositionFile))
	assert.Equal(t, 1, report.PositionFiles)
	assert.Equal(t, 2, report.PositionRows)
	assert.Equal(t, 1, report.PositionsApplied)
	assert.Equal(t, 1, report.PositionsUnaligned)
	assert.Zero(t, report.PositionsUnmatched)

	rows := snapshot(t, store)
	require.Len(t, rows, 2)
	assert.Equal(t, "DSC001", rows[0].Label)
	require.NotNil(t, rows[0].Easting)
	assert.InDelta(t, 10.0, *rows[0].Easting, 0)
	require.NotNil(t, rows[0].Yaw)
	assert.InDelta(t, 90.0, *rows[0].Yaw, 0)
	assert.Equal(t, "DSC002", rows[1].Label)
	assert.Nil(t, rows[1].Easting)
	assert.Nil(t, rows[1].Yaw)
}

func TestPipelineRun_FailureCarriesRunTiming(t *testing.T) {
	t.Parallel()
	root := sampleTree(t)
	store := newCatalog(t)
	ctx := context.Background()
	_, err := store.Initialize(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	report, err := newTestPipeline(store, root).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase), "category of the failing step is kept")

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "ingest", ee.GetComponent())
	assert.Equal(t, "ingest_run", ee.GetContext()["operation"])
	assert.Equal(t, report.RunID, ee.GetContext()["run_id"])
	assert.Contains(t, ee.GetContext(), "duration_ms")
}

func TestPipelineRun_UnreadableDirectoryIsAWarning(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not restrict root")
	}
	root := sampleTree(t)
	writeTree(t, root, map[string]string{"Locked/20230101/S/sony/DSC001.JPG": ""})
	locked := filepath.Join(root, "Locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	store := newCatalog(t)
	ctx := context.Background()
	_, err := store.Initialize(ctx)
	require.NoError(t, err)

	report, err := newTestPipeline(store, root).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.WarningCount(WarnUnreadableDirectory))
	assert.Equal(t, 2, report.FlightsCreated, "readable flights are still ingested")
}

func TestBootstrap_RunsOnlyOnEmptyCatalog(t *testing.T) {
	t.Parallel()
	root := sampleTree(t)
	store := newCatalog(t)
	ctx := context.Background()
	pipeline := newTestPipeline(store, root)

	report, err := Bootstrap(ctx, store, pipeline)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.FlightsCreated)

	report, err = Bootstrap(ctx, store, pipeline)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestReportPrint(t *testing.T) {
	t.Parallel()
	r := &Report{RunID: "abc", Root: "/data", CameraFolders: 2}
	r.warn(WarnMissingPositionFile, "/data/L/D/S", 1, errors.ErrMissingPositionFile)

	var buf bytes.Buffer
	r.Print(&buf)
	assert.Contains(t, buf.String(), "camera folders:  2")
	assert.Contains(t, buf.String(), "missing_position_file")
}
