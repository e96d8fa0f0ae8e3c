package imageview

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/errors"
)

func strPtr(s string) *string { return &s }

func writeJPEG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "DSC001.JPG")
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	jpg := writeJPEG(t, dir, 64, 32)

	img, err := Load(&catalog.ImageMeta{ID: 1, Label: "DSC001", JpgPath: &jpg, RawPath: strPtr("ignored.ARW")})
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestLoad_RawOnlyIsUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Load(&catalog.ImageMeta{ID: 2, Label: "DSC002", RawPath: strPtr("/data/DSC002.ARW")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRawDecodeUnsupported)
	assert.True(t, errors.IsCategory(err, errors.CategoryUnsupported))
}

func TestLoad_NoPaths(t *testing.T) {
	t.Parallel()

	_, err := Load(&catalog.ImageMeta{ID: 3, Label: "DSC003"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrRawDecodeUnsupported)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcessing))
}

func TestLoad_CorruptJPEG(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.JPG")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))

	_, err := Load(&catalog.ImageMeta{ID: 4, JpgPath: &path})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcessing))
}

func TestRender(t *testing.T) {
	t.Parallel()
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))

	tests := []struct {
		name       string
		opts       Options
		wantW      int
		wantH      int
		biggerThan bool
	}{
		{name: "untouched", opts: Options{}, wantW: 100, wantH: 50},
		{name: "crop", opts: Options{CropSize: 20}, wantW: 20, wantH: 20},
		{name: "crop clamped", opts: Options{CropSize: 80}, wantW: 80, wantH: 50},
		{name: "yaw ignored without rotate", opts: Options{Yaw: 90}, wantW: 100, wantH: 50},
		{name: "quarter turn", opts: Options{RotateNorth: true, Yaw: 90}, wantW: 50, wantH: 100},
		{name: "crop then rotate", opts: Options{RotateNorth: true, Yaw: 90, CropSize: 200}, wantW: 50, wantH: 100},
		{name: "diagonal expands", opts: Options{RotateNorth: true, Yaw: 45}, biggerThan: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := Render(src, tt.opts)
			if tt.biggerThan {
				assert.Greater(t, out.Bounds().Dx(), 100)
				assert.Greater(t, out.Bounds().Dy(), 50)
				return
			}
			assert.Equal(t, tt.wantW, out.Bounds().Dx())
			assert.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}

	assert.Equal(t, 100, src.Bounds().Dx(), "source must not change")
}

func TestEncode(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8)), 0))

	cfg, format, err := image.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 8, cfg.Width)
}

func TestReadExif_NoExif(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	jpg := writeJPEG(t, dir, 8, 8)

	tags, err := ReadExif(jpg)
	require.NoError(t, err)
	assert.Empty(t, tags)

	raw := filepath.Join(dir, "DSC001.ARW")
	require.NoError(t, os.WriteFile(raw, bytes.Repeat([]byte{0}, 512), 0o644))
	tags, err = ReadExif(raw)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestReadExif_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := ReadExif(filepath.Join(t.TempDir(), "absent.JPG"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
