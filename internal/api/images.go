package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flower-explorer/vistool/internal/imageview"
	"github.com/flower-explorer/vistool/internal/logger"
)

// maxCropSize bounds the crop parameter of the render endpoint
const maxCropSize = 20000

// ImagePathsRequest is the body of PUT /api/v1/images/:id/paths. Omitted fields stay unchanged,
// an empty string clears the path.
type ImagePathsRequest struct {
	RawPath *string `json:"raw_path"`
	JpgPath *string `json:"jpg_path"`
}

// GetImage handles GET /api/v1/images/:id
func (c *Controller) GetImage(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid image id", http.StatusBadRequest)
	}

	meta, err := c.Catalog.Image(ctx.Request().Context(), id)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Image not found")
	}
	return ctx.JSON(http.StatusOK, meta)
}

// UpdateImagePaths handles PUT /api/v1/images/:id/paths
func (c *Controller) UpdateImagePaths(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid image id", http.StatusBadRequest)
	}

	var req ImagePathsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.RawPath == nil && req.JpgPath == nil {
		return c.HandleError(ctx, nil, "At least one of raw_path and jpg_path is required", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	if err := c.Catalog.UpdateImagePaths(reqCtx, id, req.RawPath, req.JpgPath); err != nil {
		return c.handleCatalogError(ctx, err, "Failed to update image paths")
	}
	c.invalidateCaches()

	meta, err := c.Catalog.Image(reqCtx, id)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Image not found")
	}
	return ctx.JSON(http.StatusOK, meta)
}

// RenderImage handles GET /api/v1/images/:id/render?rotate_north=&crop=
func (c *Controller) RenderImage(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid image id", http.StatusBadRequest)
	}

	opts := imageview.Options{}
	if v := ctx.QueryParam("rotate_north"); v != "" {
		if opts.RotateNorth, err = strconv.ParseBool(v); err != nil {
			return c.HandleError(ctx, err, "Invalid rotate_north value", http.StatusBadRequest)
		}
	}
	if v := ctx.QueryParam("crop"); v != "" {
		if opts.CropSize, err = strconv.Atoi(v); err != nil || opts.CropSize < 0 || opts.CropSize > maxCropSize {
			return c.HandleError(ctx, err, fmt.Sprintf("crop must be an integer between 0 and %d", maxCropSize), http.StatusBadRequest)
		}
	}

	key := renderKey(id, opts)
	if data, ok := c.renderCache.Get(key); ok {
		return ctx.Blob(http.StatusOK, "image/jpeg", data.([]byte))
	}

	meta, err := c.Catalog.Image(ctx.Request().Context(), id)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Image not found")
	}
	if opts.RotateNorth && meta.Yaw != nil {
		opts.Yaw = *meta.Yaw
	}

	start := time.Now()
	img, err := imageview.Load(meta)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Failed to load image")
	}

	var buf bytes.Buffer
	if err := imageview.Encode(&buf, imageview.Render(img, opts), c.Settings.WebServer.JPEGQuality); err != nil {
		return c.HandleError(ctx, err, "Failed to encode image", http.StatusInternalServerError)
	}
	c.httpMetrics.RecordRender(time.Since(start))
	c.logger.Debug("image rendered",
		logger.Int64("image_id", id),
		logger.Bool("rotate_north", opts.RotateNorth),
		logger.Int("crop", opts.CropSize),
		logger.Duration("elapsed", time.Since(start)))

	data := buf.Bytes()
	c.renderCache.SetDefault(key, data)
	return ctx.Blob(http.StatusOK, "image/jpeg", data)
}

// GetImageExif handles GET /api/v1/images/:id/exif. The JPEG derivative is preferred over the RAW file.
func (c *Controller) GetImageExif(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid image id", http.StatusBadRequest)
	}

	meta, err := c.Catalog.Image(ctx.Request().Context(), id)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Image not found")
	}

	path := meta.JpgPath
	if path == nil {
		path = meta.RawPath
	}
	if path == nil {
		return c.HandleError(ctx, nil, "Image has no file", http.StatusNotFound)
	}

	tags, err := imageview.ReadExif(*path)
	if err != nil {
		return c.handleCatalogError(ctx, err, "Failed to read EXIF")
	}
	return ctx.JSON(http.StatusOK, tags)
}

func renderKey(id int64, opts imageview.Options) string {
	return fmt.Sprintf("%d|%t|%d", id, opts.RotateNorth, opts.CropSize)
}
