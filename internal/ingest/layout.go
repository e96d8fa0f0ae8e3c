// Package ingest builds the catalog from an imagery directory tree.
//
// Expected layout below the data root:
//
//	<location>/<date>/<subsite>/<camera>/...   RAW and JPEG files at any depth
//	<location>/<date>/<subsite>/CamPos*.txt    optional position estimates
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flower-explorer/vistool/internal/errors"
)

// CameraFolder is one discovered <location>/<date>/<subsite>/<camera> folder.
type CameraFolder struct {
	Location string
	Date     string
	Subsite  string
	Camera   string

	Dir        string // absolute camera folder
	FlightDir  string // absolute flight folder, the camera folder's parent
	FlightPath string // flight folder relative to the data root, forward slashes
}

// StudySite returns "<location>-<subsite>".
func (f CameraFolder) StudySite() string {
	return f.Location + "-" + f.Subsite
}

// ParseCameraPath derives the folder fields from a camera folder path. The path must lie exactly
// four levels below root. It does not touch the filesystem.
func ParseCameraPath(root, dir string) (CameraFolder, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return CameraFolder{}, layoutError(dir, err.Error())
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 {
		return CameraFolder{}, layoutError(dir, fmt.Sprintf("expected <location>/<date>/<subsite>/<camera>, got %q", filepath.ToSlash(rel)))
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return CameraFolder{}, layoutError(dir, "empty or relative path segment")
		}
	}

	return CameraFolder{
		Location:   parts[0],
		Date:       parts[1],
		Subsite:    parts[2],
		Camera:     parts[3],
		Dir:        dir,
		FlightDir:  filepath.Dir(dir),
		FlightPath: strings.Join(parts[:3], "/"),
	}, nil
}

// RelativePath returns path relative to root in forward-slash form.
func RelativePath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	return filepath.ToSlash(rel), nil
}

func layoutError(dir, reason string) error {
	return errors.Newf("not a camera folder: %s", reason).
		Component("ingest").
		Category(errors.CategoryValidation).
		FileContext(dir).
		Build()
}
