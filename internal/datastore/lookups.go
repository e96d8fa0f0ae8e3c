package datastore

import (
	"context"
	"time"

	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

// StudySites returns the distinct study sites, sorted ascending.
func (ds *DataStore) StudySites(ctx context.Context) ([]string, error) {
	return ds.strings(ctx, "flights",
		"SELECT DISTINCT study_site FROM flights ORDER BY study_site")
}

// Dates returns the distinct dates flown at studySite, sorted ascending. An unknown site yields an empty list.
func (ds *DataStore) Dates(ctx context.Context, studySite string) ([]string, error) {
	return ds.strings(ctx, "flights",
		"SELECT DISTINCT date FROM flights WHERE study_site = ? ORDER BY date", studySite)
}

// CameraNames returns the names of cameras that have images in the flight (studySite, date), sorted ascending.
func (ds *DataStore) CameraNames(ctx context.Context, studySite, date string) ([]string, error) {
	return ds.strings(ctx, "images",
		`SELECT DISTINCT c.name FROM images i
		 JOIN flights f ON f.id = i.flight_id
		 JOIN cameras c ON c.id = i.camera_id
		 WHERE f.study_site = ? AND f.date = ?
		 ORDER BY c.name`, studySite, date)
}

func (ds *DataStore) strings(ctx context.Context, table, statement string, params ...any) ([]string, error) {
	start := time.Now()
	values := []string{}
	err := ds.DB.WithContext(ctx).Raw(statement, params...).Scan(&values).Error
	ds.observe(metrics.OpLookup, table, start, err)
	if err != nil {
		return nil, dbError(err, "lookup", errors.PriorityMedium, "table", table)
	}
	return values, nil
}

// CameraID returns the id of the named camera or a not-found error.
func (ds *DataStore) CameraID(ctx context.Context, name string) (int64, error) {
	start := time.Now()
	var camera Camera
	err := ds.DB.WithContext(ctx).Where("name = ?", name).First(&camera).Error
	ds.observe(metrics.OpLookup, "cameras", start, err)
	if err != nil {
		return 0, lookupError(err, "camera_id", "camera", "name", name)
	}
	return camera.ID, nil
}

// FlightByKey returns the flight of studySite on date or a not-found error.
func (ds *DataStore) FlightByKey(ctx context.Context, studySite, date string) (*Flight, error) {
	start := time.Now()
	var flight Flight
	err := ds.DB.WithContext(ctx).Where("study_site = ? AND date = ?", studySite, date).First(&flight).Error
	ds.observe(metrics.OpLookup, "flights", start, err)
	if err != nil {
		return nil, lookupError(err, "flight_by_key", "flight", "study_site", studySite, "date", date)
	}
	return &flight, nil
}

// FlightByID returns the flight with id or a not-found error.
func (ds *DataStore) FlightByID(ctx context.Context, id int64) (*Flight, error) {
	start := time.Now()
	var flight Flight
	err := ds.DB.WithContext(ctx).First(&flight, id).Error
	ds.observe(metrics.OpLookup, "flights", start, err)
	if err != nil {
		return nil, lookupError(err, "flight_by_id", "flight", "id", id)
	}
	return &flight, nil
}

// Image returns the image row with id, paths still relative, or a not-found error.
func (ds *DataStore) Image(ctx context.Context, id int64) (*Image, error) {
	start := time.Now()
	var img Image
	err := ds.DB.WithContext(ctx).First(&img, id).Error
	ds.observe(metrics.OpLookup, "images", start, err)
	if err != nil {
		return nil, lookupError(err, "image", "image", "id", id)
	}
	return &img, nil
}

// ImageCoordinates lists every image of one camera within a flight, ordered by label.
// Images without a position carry nil coordinates.
func (ds *DataStore) ImageCoordinates(ctx context.Context, flightID, cameraID int64) ([]ImageCoordinate, error) {
	start := time.Now()
	coords := []ImageCoordinate{}
	err := ds.DB.WithContext(ctx).Raw(
		`SELECT epsg3812_easting AS easting, epsg3812_northing AS northing, yaw, label, id
		 FROM images WHERE flight_id = ? AND camera_id = ?
		 ORDER BY label`, flightID, cameraID).Scan(&coords).Error
	ds.observe(metrics.OpLookup, "images", start, err)
	if err != nil {
		return nil, dbError(err, "image_coordinates", errors.PriorityMedium,
			"flight_id", flightID, "camera_id", cameraID)
	}
	return coords, nil
}

// UpdateImagePaths overwrites the stored paths of one image. Paths must already be relative
// to the data root. A nil argument leaves that column unchanged; an empty string clears it.
func (ds *DataStore) UpdateImagePaths(ctx context.Context, id int64, rawPath, jpgPath *string) error {
	start := time.Now()
	db := ds.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&Image{}).Where("id = ?", id).Count(&count).Error; err != nil {
		ds.observe(metrics.OpUpdateImagePath, "images", start, err)
		return dbError(err, "update_image_paths", errors.PriorityMedium, "id", id)
	}
	if count == 0 {
		ds.observe(metrics.OpUpdateImagePath, "images", start, nil)
		return errors.NotFound("datastore", "image", "id", id)
	}

	updates := map[string]any{}
	if rawPath != nil {
		updates["raw_path"] = nullable(*rawPath)
	}
	if jpgPath != nil {
		updates["jpg_path"] = nullable(*jpgPath)
	}
	if len(updates) == 0 {
		return nil
	}

	err := db.Model(&Image{}).Where("id = ?", id).Updates(updates).Error
	ds.observe(metrics.OpUpdateImagePath, "images", start, err)
	if err != nil {
		return dbError(err, "update_image_paths", errors.PriorityMedium, "id", id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// TableCounts returns the row count of every catalog table.
func (ds *DataStore) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for _, model := range catalogModels() {
		var n int64
		stmt := ds.DB.WithContext(ctx).Model(model)
		if err := stmt.Count(&n).Error; err != nil {
			return nil, dbError(err, "table_counts", errors.PriorityLow)
		}
		counts[tableName(model)] = n
	}
	return counts, nil
}

func tableName(model any) string {
	switch model.(type) {
	case *Camera:
		return Camera{}.TableName()
	case *Flight:
		return Flight{}.TableName()
	default:
		return Image{}.TableName()
	}
}
