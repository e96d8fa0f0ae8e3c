package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/flower-explorer/vistool/internal/errors"
)

// FolderFiles holds the image files found below one camera folder.
type FolderFiles struct {
	Raw  []string
	JPEG []string
}

// ScanFiles walks dir recursively and returns the regular files whose extension, without the
// dot, equals one of exts. Matching is case-sensitive. Paths are sorted.
func ScanFiles(dir string, exts []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(exts, extension(d.Name())) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			FileContext(dir).
			Build()
	}
	slices.Sort(files)
	return files, nil
}

// Label returns the file name without its last extension.
func Label(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func extension(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

// scanFolders scans every camera folder with at most workers walks in flight.
// Results are index-aligned with folders.
func scanFolders(ctx context.Context, folders []CameraFolder, rawExts, jpegExts []string, workers int) ([]FolderFiles, error) {
	results := make([]FolderFiles, len(folders))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, folder := range folders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := ScanFiles(folder.Dir, rawExts)
			if err != nil {
				return err
			}
			jpeg, err := ScanFiles(folder.Dir, jpegExts)
			if err != nil {
				return err
			}
			results[i] = FolderFiles{Raw: raw, JPEG: jpeg}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
