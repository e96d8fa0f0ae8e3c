package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/image/tiff"

	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
)

// Ortho describes the orthomosaic of a flight.
type Ortho struct {
	FlightID int64  `json:"flight_id"`
	Path     string `json:"path"`
	Width    int    `json:"width"`  // pixels, 0 when the header could not be read
	Height   int    `json:"height"` // pixels, 0 when the header could not be read
}

// FindOrtho returns the first file in flightDir, by name, matching pattern. When several match
// the first one is used and a warning is logged. No match fails with errors.ErrNotFound.
func FindOrtho(flightDir, pattern string, log logger.Logger) (string, error) {
	entries, err := os.ReadDir(flightDir)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.FileError(err, flightDir)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, e.Name())
		if err != nil {
			return "", errors.New(err).
				Component("catalog").
				Category(errors.CategoryConfiguration).
				Context("pattern", pattern).
				Build()
		}
		if ok {
			matches = append(matches, filepath.Join(flightDir, e.Name()))
		}
	}

	if len(matches) == 0 {
		return "", notFound("orthomosaic", "folder", flightDir, "pattern", pattern)
	}
	slices.Sort(matches)
	if len(matches) > 1 && log != nil {
		log.Warn("more than one orthomosaic in flight folder, using the first",
			logger.String("folder", flightDir),
			logger.String("selected", filepath.Base(matches[0])),
			logger.Int("count", len(matches)))
	}
	return matches[0], nil
}

// Ortho locates the orthomosaic of flight id and reads its pixel dimensions from the TIFF header.
// An unreadable header is logged and leaves the dimensions at zero.
func (c *Catalog) Ortho(ctx context.Context, flightID int64) (*Ortho, error) {
	flight, err := c.FlightByID(ctx, flightID)
	if err != nil {
		return nil, err
	}

	path, err := FindOrtho(flight.Folder, c.opts.OrthoPattern, c.log)
	if err != nil {
		return nil, err
	}

	ortho := &Ortho{FlightID: flightID, Path: path}
	width, height, err := tiffSize(path)
	if err != nil {
		c.log.Warn("cannot read orthomosaic header",
			logger.String("path", path),
			logger.Error(err))
		return ortho, nil
	}
	ortho.Width, ortho.Height = width, height
	return ortho, nil
}

func tiffSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode tiff header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
