package imageview

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure"

	"github.com/flower-explorer/vistool/internal/errors"
)

// Tag is one EXIF entry.
type Tag struct {
	IFD   string `json:"ifd"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReadExif returns the EXIF tags of a JPEG or RAW file. JPEG files are parsed segment by segment;
// other files, and JPEGs whose structure cannot be parsed, are searched for an EXIF block.
// A file without EXIF yields no tags and no error.
func ReadExif(path string) ([]Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.FileError(err, path)
	}

	var raw []byte
	structured := false
	if isJPEG(path) {
		if ctx, err := jpegstructure.NewJpegMediaParser().Parse(f, int(info.Size())); err == nil {
			structured = true
			_, raw, _ = ctx.Exif()
		}
	}
	if structured && len(raw) == 0 {
		return []Tag{}, nil
	}

	if len(raw) == 0 {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, errors.FileError(err, path)
		}
		raw, err = exif.SearchAndExtractExifWithReader(f)
		if err != nil {
			if errors.Is(err, exif.ErrNoExif) {
				return []Tag{}, nil
			}
			return nil, exifError(err, path)
		}
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return nil, exifError(err, path)
	}

	tags := make([]Tag, 0, len(entries))
	for _, e := range entries {
		if e.TagName == "" {
			continue
		}
		value := strings.ReplaceAll(e.FormattedFirst, "\x00", "")
		if value == "" {
			continue
		}
		tags = append(tags, Tag{IFD: e.IfdPath, Name: e.TagName, Value: value})
	}
	return tags, nil
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

func exifError(err error, path string) error {
	return errors.New(err).
		Component("imageview").
		Category(errors.CategoryFileParsing).
		FileContext(path).
		Build()
}
