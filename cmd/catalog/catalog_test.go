package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	root := t.TempDir()
	flightDir := filepath.Join(root, "Meise", "20230615", "A")
	require.NoError(t, os.MkdirAll(filepath.Join(flightDir, "sony"), 0o755))
	for _, name := range []string{"DSC001.JPG", "DSC002.JPG", "DSC002.ARW"} {
		require.NoError(t, os.WriteFile(filepath.Join(flightDir, "sony", name), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(flightDir, "CamPos_A.txt"),
		[]byte("# Cameras (1)\n#Label,X_est,Y_est,Z_est,Yaw_est,Pitch_est,Roll_est\nDSC002.JPG,10,20,30,45,0,0\n"), 0o644))

	settings := &conf.Settings{}
	settings.Data.Path = root
	settings.Catalog.Type = conf.CatalogSQLite
	settings.Catalog.SQLite.Path = filepath.Join(t.TempDir(), "catalog.db")
	settings.Ingest.Cameras = []string{"sony"}
	settings.Ingest.RawExtensions = []string{"ARW"}
	settings.Ingest.JPEGExtensions = []string{"JPG"}
	settings.Ingest.PositionPattern = "CamPos*.txt"
	settings.Logging = logger.LoggingConfig{
		DefaultLevel: "error",
		Console:      &logger.ConsoleOutput{Enabled: false, Level: "error"},
	}
	return settings
}

func run(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// imageID finds the id of label in the coords listing
func imageID(t *testing.T, settings *conf.Settings, label string) string {
	t.Helper()
	out, err := run(t, settings, "coords", "Meise-A", "20230615", "sony")
	require.NoError(t, err)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) > 1 && fields[1] == label {
			return fields[0]
		}
	}
	t.Fatalf("label %s not listed", label)
	return ""
}

func TestListCommands(t *testing.T) {
	settings := testSettings(t)

	out, err := run(t, settings, "sites")
	require.NoError(t, err)
	assert.Equal(t, "Meise-A\n", out)

	out, err = run(t, settings, "dates", "Meise-A")
	require.NoError(t, err)
	assert.Equal(t, "20230615\n", out)

	out, err = run(t, settings, "cameras", "Meise-A", "20230615")
	require.NoError(t, err)
	assert.Equal(t, "sony\n", out)

	_, err = run(t, settings, "dates")
	require.Error(t, err)
}

func TestCoordsCommand(t *testing.T) {
	settings := testSettings(t)

	out, err := run(t, settings, "coords", "Meise-A", "20230615", "sony")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id\tlabel\teasting\tnorthing\tyaw", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "\tDSC001\t-\t-\t-"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "\tDSC002\t10.000\t20.000\t45.000"), lines[2])

	out, err = run(t, settings, "coords", "--located", "Meise-A", "20230615", "sony")
	require.NoError(t, err)
	assert.NotContains(t, out, "DSC001")

	out, err = run(t, settings, "coords", "--label", "DSC002", "Meise-A", "20230615", "sony")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, imageID(t, settings, "DSC002")+"\tDSC002\t10.000\t20.000\t45.000", lines[1])

	_, err = run(t, settings, "coords", "--label", "DSC404", "Meise-A", "20230615", "sony")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = run(t, settings, "coords", "Meise-A", "20230615", "nikon")
	require.Error(t, err)
}

func TestImageAndSetPaths(t *testing.T) {
	settings := testSettings(t)

	id := imageID(t, settings, "DSC002")
	out, err := run(t, settings, "image", id)
	require.NoError(t, err)
	var meta catalog.ImageMeta
	require.NoError(t, json.Unmarshal([]byte(out), &meta))
	assert.Equal(t, "DSC002", meta.Label)
	require.NotNil(t, meta.RawPath)
	require.NotNil(t, meta.JpgPath)

	out, err = run(t, settings, "set-paths", id, "--raw=")
	require.NoError(t, err)
	meta = catalog.ImageMeta{}
	require.NoError(t, json.Unmarshal([]byte(out), &meta))
	assert.Nil(t, meta.RawPath)
	assert.NotNil(t, meta.JpgPath, "jpg path is left unchanged")

	_, err = run(t, settings, "set-paths", id)
	require.Error(t, err)

	_, err = run(t, settings, "image", "abc")
	require.Error(t, err)
}

func TestExifCommandOnEmptyFile(t *testing.T) {
	settings := testSettings(t)

	out, err := run(t, settings, "exif", imageID(t, settings, "DSC001"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOrthoCommandWithoutOrtho(t *testing.T) {
	settings := testSettings(t)

	_, err := run(t, settings, "ortho", "Meise-A", "20230615")
	require.Error(t, err)
}
