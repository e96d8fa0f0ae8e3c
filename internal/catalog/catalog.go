// Package catalog is the read side of the image catalog used by the HTTP API and the CLI.
// Stored paths are relative to the data root; everything handed out here is absolute.
package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

const (
	defaultCacheTTL     = 10 * time.Minute
	defaultOrthoPattern = "Ortho*.tif"
)

// Options configures a Catalog.
type Options struct {
	Root         string        // absolute data root
	OrthoPattern string        // orthomosaic file pattern inside a flight folder
	CacheTTL     time.Duration // lifetime of cached selector lists, <= 0 uses the default
}

// Catalog wraps the datastore with path resolution and a cache for the selector lists.
type Catalog struct {
	store   datastore.Interface
	opts    Options
	lists   *cache.Cache
	log     logger.Logger
	metrics *metrics.CatalogMetrics
}

// New creates a catalog over an opened and initialized store. log and m may be nil.
func New(store datastore.Interface, opts Options, log logger.Logger, m *metrics.CatalogMetrics) *Catalog {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.OrthoPattern == "" {
		opts.OrthoPattern = defaultOrthoPattern
	}
	opts.Root = filepath.Clean(opts.Root)

	return &Catalog{
		store: store,
		opts:  opts,
		// No janitor: expired lists are skipped on read and dropped by Invalidate
		lists:   cache.New(opts.CacheTTL, 0),
		log:     log.Module("catalog"),
		metrics: m,
	}
}

// Root returns the absolute data root.
func (c *Catalog) Root() string { return c.opts.Root }

// Store returns the underlying datastore.
func (c *Catalog) Store() datastore.Interface { return c.store }

// Invalidate drops all cached lists. Call it after the catalog was written to.
func (c *Catalog) Invalidate() {
	c.lists.Flush()
}

// StudySites returns all study sites, sorted.
func (c *Catalog) StudySites(ctx context.Context) ([]string, error) {
	return c.cachedList("sites", func() ([]string, error) {
		return c.store.StudySites(ctx)
	})
}

// Dates returns the dates flown at site, sorted.
func (c *Catalog) Dates(ctx context.Context, site string) ([]string, error) {
	return c.cachedList("dates|"+site, func() ([]string, error) {
		return c.store.Dates(ctx, site)
	})
}

// Cameras returns the cameras with at least one image for site on date, sorted.
func (c *Catalog) Cameras(ctx context.Context, site, date string) ([]string, error) {
	return c.cachedList("cameras|"+site+"|"+date, func() ([]string, error) {
		return c.store.CameraNames(ctx, site, date)
	})
}

func (c *Catalog) cachedList(key string, load func() ([]string, error)) ([]string, error) {
	if v, ok := c.lists.Get(key); ok {
		c.metrics.RecordCache("lists", true)
		return v.([]string), nil
	}
	c.metrics.RecordCache("lists", false)

	values, err := load()
	if err != nil {
		return nil, err
	}
	c.lists.SetDefault(key, values)
	return values, nil
}

// CameraID returns the id of a camera name. Unknown names fail with errors.ErrNotFound.
func (c *Catalog) CameraID(ctx context.Context, name string) (int64, error) {
	return c.store.CameraID(ctx, name)
}

// Flight is a flight with its folder resolved against the data root.
type Flight struct {
	ID        int64  `json:"id"`
	StudySite string `json:"study_site"`
	Date      string `json:"date"`
	Path      string `json:"path"` // as stored, relative
	Folder    string `json:"folder"`
}

// FlightByKey returns the flight of site on date. A missing flight fails with errors.ErrNotFound.
func (c *Catalog) FlightByKey(ctx context.Context, site, date string) (*Flight, error) {
	f, err := c.store.FlightByKey(ctx, site, date)
	if err != nil {
		return nil, err
	}
	return c.flight(f), nil
}

// FlightByID returns the flight with id. A missing flight fails with errors.ErrNotFound.
func (c *Catalog) FlightByID(ctx context.Context, id int64) (*Flight, error) {
	f, err := c.store.FlightByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.flight(f), nil
}

func (c *Catalog) flight(f *datastore.Flight) *Flight {
	return &Flight{
		ID:        f.ID,
		StudySite: f.StudySite,
		Date:      f.Date,
		Path:      f.Path,
		Folder:    c.Absolute(f.Path),
	}
}

// ImageMeta is an image row with absolute file paths. Nil fields are unknown.
type ImageMeta struct {
	ID       int64    `json:"id"`
	Label    string   `json:"label"`
	FlightID int64    `json:"flight_id"`
	CameraID int64    `json:"camera_id"`
	RawPath  *string  `json:"raw_path"`
	JpgPath  *string  `json:"jpg_path"`
	Easting  *float64 `json:"epsg3812_easting"`
	Northing *float64 `json:"epsg3812_northing"`
	Altitude *float64 `json:"altitude"`
	Yaw      *float64 `json:"yaw"`
}

// Image returns the metadata of image id with paths joined to the data root.
func (c *Catalog) Image(ctx context.Context, id int64) (*ImageMeta, error) {
	img, err := c.store.Image(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ImageMeta{
		ID:       img.ID,
		Label:    img.Label,
		FlightID: img.FlightID,
		CameraID: img.CameraID,
		RawPath:  c.absolutePtr(img.RawPath),
		JpgPath:  c.absolutePtr(img.JpgPath),
		Easting:  img.Easting,
		Northing: img.Northing,
		Altitude: img.Altitude,
		Yaw:      img.Yaw,
	}, nil
}

// ImageCoordinates returns easting, northing, yaw, label and id of every image taken by the
// camera during the flight, ordered by label.
func (c *Catalog) ImageCoordinates(ctx context.Context, flightID, cameraID int64) ([]datastore.ImageCoordinate, error) {
	return c.store.ImageCoordinates(ctx, flightID, cameraID)
}

// UpdateImagePaths stores new file paths for image id. Paths inside the data root are stored
// relative to it, others as given. A nil path leaves the stored value unchanged.
func (c *Catalog) UpdateImagePaths(ctx context.Context, id int64, rawPath, jpgPath *string) error {
	err := c.store.UpdateImagePaths(ctx, id, c.relativePtr(rawPath), c.relativePtr(jpgPath))
	if err != nil {
		return err
	}
	c.log.Info("image paths updated",
		logger.Int64("image_id", id),
		logger.Bool("raw", rawPath != nil),
		logger.Bool("jpg", jpgPath != nil))
	return nil
}

// Absolute resolves a stored path against the data root. Absolute paths are returned cleaned.
func (c *Catalog) Absolute(stored string) string {
	p := filepath.FromSlash(stored)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.opts.Root, p)
}

// Relative turns path into its stored form: relative to the data root with forward slashes
// when it lies inside the root, unchanged otherwise.
func (c *Catalog) Relative(path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(c.opts.Root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Clean(path)
	}
	return filepath.ToSlash(rel)
}

func (c *Catalog) absolutePtr(stored *string) *string {
	if stored == nil {
		return nil
	}
	abs := c.Absolute(*stored)
	return &abs
}

func (c *Catalog) relativePtr(path *string) *string {
	if path == nil {
		return nil
	}
	rel := c.Relative(*path)
	return &rel
}

// notFound builds a catalog not-found error.
func notFound(entity string, keyvals ...any) error {
	return errors.NotFound("catalog", entity, keyvals...)
}
