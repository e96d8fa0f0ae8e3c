package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFiles_ExactCaseExtensions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"DSC1.ARW":         "",
		"raw/DSC2.DNG":     "",
		"raw/DSC3.arw":     "", // lower case RAW is not matched
		"JPG/DSC1.JPG":     "",
		"JPG/sub/DSC4.jpg": "",
		"JPG/DSC5.Jpg":     "",
		"JPG/DSC6.jpeg":    "",
	})

	raw, err := ScanFiles(dir, []string{"ARW", "DNG"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "DSC1.ARW"),
		filepath.Join(dir, "raw", "DSC2.DNG"),
	}, raw)

	jpeg, err := ScanFiles(dir, []string{"JPG", "jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "JPG", "DSC1.JPG"),
		filepath.Join(dir, "JPG", "sub", "DSC4.jpg"),
	}, jpeg)
}

func TestScanFolders_IndexAligned(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"L/D/S/sony/a.JPG":  "",
		"L/D/S/canon/b.ARW": "",
	})
	folders, _, err := Discover(root, []string{"sony", "canon"})
	require.NoError(t, err)
	require.Len(t, folders, 2)

	files, err := scanFolders(context.Background(), folders, []string{"ARW"}, []string{"JPG"}, 1)
	require.NoError(t, err)
	require.Len(t, files, 2)

	// canon sorts before sony
	assert.Len(t, files[0].Raw, 1)
	assert.Empty(t, files[0].JPEG)
	assert.Empty(t, files[1].Raw)
	assert.Len(t, files[1].JPEG, 1)
}

func TestScanFolders_Cancelled(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"L/D/S/sony/a.JPG": ""})
	folders, _, err := Discover(root, []string{"sony"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = scanFolders(ctx, folders, nil, []string{"JPG"}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
