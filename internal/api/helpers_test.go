package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/ingest"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability"
)

type testEnv struct {
	echo       *echo.Echo
	controller *Controller
	root       string
}

// newTestEnv ingests a small data root into a fresh SQLite catalog:
// Meise-A on 20230615 with a 40x20 sony JPEG (yaw 90), a RAW-only image and an orthomosaic.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	root := t.TempDir()
	flightDir := filepath.Join(root, "Meise", "20230615", "A")
	writeJPEG(t, filepath.Join(flightDir, "sony", "DSC001.JPG"), 40, 20)
	writeFile(t, filepath.Join(flightDir, "sony", "DSC002.ARW"), "")
	writeFile(t, filepath.Join(flightDir, "CamPos_A.txt"),
		"# Cameras (2)\n#Label,X_est,Y_est,Z_est,Yaw_est,Pitch_est,Roll_est\n"+
			"DSC001.JPG,1000.5,2000.5,50,90,0,0\n")
	writeTIFF(t, filepath.Join(flightDir, "Ortho_A.tif"), 8, 6)

	settings := &conf.Settings{Version: "test"}
	settings.Data.Path = root
	settings.Catalog.Type = conf.CatalogSQLite
	settings.Catalog.SQLite.Path = filepath.Join(t.TempDir(), "catalog.db")
	settings.WebServer.JPEGQuality = 90

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, nil)
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	store, err := datastore.New(settings, log, m.Catalog)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	pipeline := ingest.NewPipeline(store, ingest.Options{
		Root:            root,
		Cameras:         []string{"sony"},
		RawExtensions:   []string{"ARW"},
		JPEGExtensions:  []string{"JPG"},
		PositionPattern: "CamPos*.txt",
		Workers:         1,
	}, log, m.Ingest)
	_, err = ingest.Bootstrap(ctx, store, pipeline)
	require.NoError(t, err)

	cat := catalog.New(store, catalog.Options{Root: root}, log, m.Catalog)
	e := echo.New()
	return &testEnv{
		echo:       e,
		controller: New(e, cat, pipeline, settings, log, m),
		root:       root,
	}
}

func (env *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) getJSON(t *testing.T, target string, code int, dest any) {
	t.Helper()
	rec := env.do(t, http.MethodGet, target, nil)
	require.Equal(t, code, rec.Code, rec.Body.String())
	if dest != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
	}
}

// imageID looks up an image id through the coordinates endpoint
func (env *testEnv) imageID(t *testing.T, label string) int64 {
	t.Helper()
	var resolved catalog.Resolved
	env.getJSON(t, "/api/v1/resolve", http.StatusOK, &resolved)
	id, ok := catalog.ImageIDByLabel(resolved.Coordinates, label)
	require.True(t, ok, "label %s not found", label)
	return id
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 12), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	writeFile(t, path, buf.String())
}

func writeTIFF(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	writeFile(t, path, buf.String())
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
