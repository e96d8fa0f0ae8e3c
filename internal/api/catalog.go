package api

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
)

// CameraResponse is a camera name with its id.
type CameraResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetStudySites handles GET /api/v1/sites
func (c *Controller) GetStudySites(ctx echo.Context) error {
	sites, err := c.Catalog.StudySites(ctx.Request().Context())
	if err != nil {
		return c.handleCatalogError(ctx, err, "Failed to list study sites")
	}
	return ctx.JSON(http.StatusOK, sites)
}

// GetDates handles GET /api/v1/sites/:site/dates
func (c *Controller) GetDates(ctx echo.Context) error {
	dates, err := c.Catalog.Dates(ctx.Request().Context(), ctx.Param("site"))
	if err != nil {
		return c.handleCatalogError(ctx, err, "Failed to list dates")
	}
	return ctx.JSON(http.StatusOK, dates)
}

// GetCameras handles GET /api/v1/sites/:site/dates/:date/cameras
func (c *Controller) GetCameras(ctx echo.Context) error {
	cameras, err := c.Catalog.Cameras(ctx.Request().Context(), ctx.Param("site"), ctx.Param("date"))
	if err != nil {
		return c.handleCatalogError(ctx, err, "Failed to list cameras")
	}
	return ctx.JSON(http.StatusOK, cameras)
}

// GetCamera handles GET /api/v1/cameras/:name
func (c *Controller) GetCamera(ctx echo.Context) error {
	name := ctx.Param("name")
	id, err := c.Catalog.CameraID(ctx.Request().Context(), name)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Camera not found")
	}
	return ctx.JSON(http.StatusOK, CameraResponse{ID: id, Name: name})
}

// GetFlight handles GET /api/v1/flights?site=&date=
func (c *Controller) GetFlight(ctx echo.Context) error {
	site, date := ctx.QueryParam("site"), ctx.QueryParam("date")
	if site == "" || date == "" {
		return c.HandleError(ctx, nil, "Query parameters site and date are required", http.StatusBadRequest)
	}

	flight, err := c.Catalog.FlightByKey(ctx.Request().Context(), site, date)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Flight not found")
	}
	return ctx.JSON(http.StatusOK, flight)
}

// ResolveSelection handles GET /api/v1/resolve?site=&date=&camera=
func (c *Controller) ResolveSelection(ctx echo.Context) error {
	resolved, err := c.Catalog.Resolve(ctx.Request().Context(), catalog.Selection{
		StudySite: ctx.QueryParam("site"),
		Date:      ctx.QueryParam("date"),
		Camera:    ctx.QueryParam("camera"),
	})
	if err != nil {
		return c.handleCatalogError(ctx, err, "Selection cannot be resolved")
	}
	return ctx.JSON(http.StatusOK, resolved)
}

// GetImageCoordinates handles GET /api/v1/flights/:id/cameras/:cameraID/images.
// With located=true only images with a position estimate are returned; label=X narrows
// the list to that one image and answers 404 when the flight has no such label.
func (c *Controller) GetImageCoordinates(ctx echo.Context) error {
	coords, ok, err := c.flightCameraCoordinates(ctx)
	if !ok {
		return err
	}
	if located, _ := strconv.ParseBool(ctx.QueryParam("located")); located {
		coords = catalog.Located(coords)
	}
	if label := ctx.QueryParam("label"); label != "" {
		id, ok := catalog.ImageIDByLabel(coords, label)
		if !ok {
			return c.HandleError(ctx, errors.NotFound("api", "image", "label", label), "Image not found", http.StatusNotFound)
		}
		coords = slices.DeleteFunc(coords, func(ic datastore.ImageCoordinate) bool { return ic.ID != id })
	}
	return ctx.JSON(http.StatusOK, coords)
}

// GetImageLabels handles GET /api/v1/flights/:id/cameras/:cameraID/labels
func (c *Controller) GetImageLabels(ctx echo.Context) error {
	coords, ok, err := c.flightCameraCoordinates(ctx)
	if !ok {
		return err
	}
	return ctx.JSON(http.StatusOK, catalog.ImageLabels(coords))
}

// flightCameraCoordinates loads the coordinates named by the :id and :cameraID params.
// When ok is false the error response has been written and err is what the handler returns.
func (c *Controller) flightCameraCoordinates(ctx echo.Context) (coords []datastore.ImageCoordinate, ok bool, err error) {
	flightID, err := parseID(ctx, "id")
	if err != nil {
		return nil, false, c.HandleError(ctx, err, "Invalid flight id", http.StatusBadRequest)
	}
	cameraID, err := parseID(ctx, "cameraID")
	if err != nil {
		return nil, false, c.HandleError(ctx, err, "Invalid camera id", http.StatusBadRequest)
	}

	coords, err = c.Catalog.ImageCoordinates(ctx.Request().Context(), flightID, cameraID)
	if err != nil {
		return nil, false, c.handleCatalogError(ctx, err, "Failed to list image coordinates")
	}
	return coords, true, nil
}

// GetOrtho handles GET /api/v1/flights/:id/ortho
func (c *Controller) GetOrtho(ctx echo.Context) error {
	flightID, err := parseID(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid flight id", http.StatusBadRequest)
	}

	ortho, err := c.Catalog.Ortho(ctx.Request().Context(), flightID)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Orthomosaic not found")
	}
	return ctx.JSON(http.StatusOK, ortho)
}

func parseID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
