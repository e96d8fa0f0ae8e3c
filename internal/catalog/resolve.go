package catalog

import (
	"context"
	"slices"

	"github.com/flower-explorer/vistool/internal/datastore"
)

// Selection is a requested site, date and camera. Empty fields mean "any".
type Selection struct {
	StudySite string `json:"study_site"`
	Date      string `json:"date"`
	Camera    string `json:"camera"`
}

// Resolved is a selection narrowed to one flight and camera, with the choices that were
// available at each level.
type Resolved struct {
	Selection
	Flight      *Flight                     `json:"flight"`
	CameraID    int64                       `json:"camera_id"`
	Coordinates []datastore.ImageCoordinate `json:"coordinates"`

	Sites   []string `json:"sites"`
	Dates   []string `json:"dates"`
	Cameras []string `json:"cameras"`
}

// Resolve fills in a selection the way the site, date and camera pickers cascade: an empty site
// picks the first site, a date that is empty or not flown at the site picks the site's first
// date, and a camera that is empty or has no images on that date picks the first camera.
// An unknown site, or a flight without images, fails with errors.ErrNotFound.
func (c *Catalog) Resolve(ctx context.Context, sel Selection) (*Resolved, error) {
	sites, err := c.StudySites(ctx)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, notFound("study site", "reason", "catalog is empty")
	}
	switch {
	case sel.StudySite == "":
		sel.StudySite = sites[0]
	case !slices.Contains(sites, sel.StudySite):
		return nil, notFound("study site", "study_site", sel.StudySite)
	}

	dates, err := c.Dates(ctx, sel.StudySite)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, notFound("flight", "study_site", sel.StudySite)
	}
	if !slices.Contains(dates, sel.Date) {
		sel.Date = dates[0]
	}

	cameras, err := c.Cameras(ctx, sel.StudySite, sel.Date)
	if err != nil {
		return nil, err
	}
	if len(cameras) == 0 {
		return nil, notFound("camera", "study_site", sel.StudySite, "date", sel.Date)
	}
	if !slices.Contains(cameras, sel.Camera) {
		sel.Camera = cameras[0]
	}

	flight, err := c.FlightByKey(ctx, sel.StudySite, sel.Date)
	if err != nil {
		return nil, err
	}
	cameraID, err := c.CameraID(ctx, sel.Camera)
	if err != nil {
		return nil, err
	}
	coords, err := c.ImageCoordinates(ctx, flight.ID, cameraID)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Selection:   sel,
		Flight:      flight,
		CameraID:    cameraID,
		Coordinates: coords,
		Sites:       sites,
		Dates:       dates,
		Cameras:     cameras,
	}, nil
}

// ImageLabels returns the labels of coords, sorted.
func ImageLabels(coords []datastore.ImageCoordinate) []string {
	labels := make([]string, 0, len(coords))
	for _, c := range coords {
		labels = append(labels, c.Label)
	}
	slices.Sort(labels)
	return labels
}

// ImageIDByLabel returns the id of the image with label in coords.
func ImageIDByLabel(coords []datastore.ImageCoordinate, label string) (int64, bool) {
	for _, c := range coords {
		if c.Label == label {
			return c.ID, true
		}
	}
	return 0, false
}

// Located returns the coordinates that carry a position estimate.
func Located(coords []datastore.ImageCoordinate) []datastore.ImageCoordinate {
	out := make([]datastore.ImageCoordinate, 0, len(coords))
	for _, c := range coords {
		if c.Easting != nil && c.Northing != nil {
			out = append(out, c)
		}
	}
	return out
}
