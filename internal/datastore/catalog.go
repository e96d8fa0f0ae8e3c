package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

// upsertBatchSize bounds the rows per INSERT statement
const upsertBatchSize = 500

// RegisterFlight returns the id of the flight for (studySite, date), inserting it with path
// when absent. The bool reports whether a row was created. An existing flight keeps its path.
func (ds *DataStore) RegisterFlight(ctx context.Context, studySite, date, path string) (int64, bool, error) {
	if studySite == "" || date == "" {
		return 0, false, validationError("study site and date are required", "flight", studySite+"/"+date)
	}

	start := time.Now()
	flight := Flight{StudySite: studySite, Date: date, Path: path}

	// DO NOTHING on conflict, then read back: works the same on SQLite and MySQL
	result := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&flight)
	if result.Error != nil {
		ds.observe(metrics.OpRegisterFlight, "flights", start, result.Error)
		return 0, false, dbError(result.Error, "register_flight", errors.PriorityHigh,
			"study_site", studySite, "date", date)
	}
	created := result.RowsAffected == 1

	var existing Flight
	if err := ds.DB.WithContext(ctx).Where("study_site = ? AND date = ?", studySite, date).First(&existing).Error; err != nil {
		ds.observe(metrics.OpRegisterFlight, "flights", start, err)
		return 0, false, lookupError(err, "register_flight", "flight", "study_site", studySite, "date", date)
	}

	ds.Metrics.RecordDbOperation(metrics.OpRegisterFlight, "flights", createdStatus(created), time.Since(start))
	if created {
		ds.Logger.Debug("flight registered",
			logger.Int64("flight_id", existing.ID),
			logger.String("study_site", studySite),
			logger.String("date", date),
			logger.String("path", path))
	}
	return existing.ID, created, nil
}

// RegisterCamera returns the id of the named camera, inserting it when absent.
func (ds *DataStore) RegisterCamera(ctx context.Context, name string) (int64, bool, error) {
	if name == "" {
		return 0, false, validationError("camera name is required", "camera", name)
	}

	start := time.Now()
	camera := Camera{Name: name}

	result := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&camera)
	if result.Error != nil {
		ds.observe(metrics.OpRegisterCamera, "cameras", start, result.Error)
		return 0, false, dbError(result.Error, "register_camera", errors.PriorityHigh, "name", name)
	}
	created := result.RowsAffected == 1

	var existing Camera
	if err := ds.DB.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err != nil {
		ds.observe(metrics.OpRegisterCamera, "cameras", start, err)
		return 0, false, lookupError(err, "register_camera", "camera", "name", name)
	}

	ds.Metrics.RecordDbOperation(metrics.OpRegisterCamera, "cameras", createdStatus(created), time.Since(start))
	return existing.ID, created, nil
}

func createdStatus(created bool) string {
	if created {
		return metrics.StatusCreated
	}
	return metrics.StatusReused
}

// UpsertImagePaths registers file sightings of one kind. Rows are keyed on (flight_id, label);
// on conflict only the column of kind is overwritten, so the other path, the camera and the
// position fields stay untouched. When the same label appears twice the later sighting wins.
func (ds *DataStore) UpsertImagePaths(ctx context.Context, kind PathKind, paths []ImagePath) error {
	if kind != PathRaw && kind != PathJPG {
		return validationError("unknown image path kind", "kind", kind)
	}
	if len(paths) == 0 {
		return nil
	}

	start := time.Now()
	rows := dedupeImagePaths(kind, paths)

	err := ds.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "flight_id"}, {Name: "label"}},
			DoUpdates: clause.AssignmentColumns([]string{kind.Column()}),
		}).
		CreateInBatches(&rows, upsertBatchSize).Error

	ds.observe(metrics.OpUpsertImage, "images", start, err)
	if err != nil {
		return dbError(err, "upsert_image_paths", errors.PriorityHigh,
			"kind", string(kind), "rows", len(rows))
	}
	return nil
}

// dedupeImagePaths converts sightings to rows keeping the last sighting per (flight, label)
func dedupeImagePaths(kind PathKind, paths []ImagePath) []Image {
	type key struct {
		flightID int64
		label    string
	}

	index := make(map[key]int, len(paths))
	rows := make([]Image, 0, len(paths))
	for _, p := range paths {
		path := p.Path
		img := Image{FlightID: p.FlightID, CameraID: p.CameraID, Label: p.Label}
		if kind == PathRaw {
			img.RawPath = &path
		} else {
			img.JpgPath = &path
		}

		k := key{p.FlightID, p.Label}
		if i, ok := index[k]; ok {
			rows[i] = img
			continue
		}
		index[k] = len(rows)
		rows = append(rows, img)
	}
	return rows
}

const updatePositionSQL = `UPDATE images
	SET epsg3812_easting = ?, epsg3812_northing = ?, altitude = ?, yaw = ?
	WHERE flight_id = ? AND label = ?`

// ApplyPositions writes position estimates onto the flight's images in one transaction.
// Rows whose label has no image in the flight are skipped. It returns the number of rows applied.
func (ds *DataStore) ApplyPositions(ctx context.Context, flightID int64, positions []Position) (int, error) {
	if len(positions) == 0 {
		return 0, nil
	}

	start := time.Now()
	applied := 0

	err := ds.Transaction(ctx, func(tx *DataStore) error {
		var labels []string
		if err := tx.DB.WithContext(ctx).Model(&Image{}).Where("flight_id = ?", flightID).Pluck("label", &labels).Error; err != nil {
			return err
		}
		known := make(map[string]struct{}, len(labels))
		for _, l := range labels {
			known[l] = struct{}{}
		}

		for _, p := range positions {
			if _, ok := known[p.Label]; !ok {
				continue
			}
			if _, err := tx.Execute(ctx, updatePositionSQL,
				p.Easting, p.Northing, p.Altitude, p.Yaw, flightID, p.Label); err != nil {
				return fmt.Errorf("label %s: %w", p.Label, err)
			}
			applied++
		}
		return nil
	})

	ds.observe(metrics.OpApplyPositions, "images", start, err)
	if err != nil {
		return 0, dbError(err, "apply_positions", errors.PriorityHigh,
			"flight_id", flightID, "rows", len(positions))
	}
	return applied, nil
}
