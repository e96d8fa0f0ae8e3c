// Package api serves the image catalog over HTTP with echo.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/ingest"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

const defaultCacheTTL = 10 * time.Minute

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Catalog  *catalog.Catalog
	Pipeline *ingest.Pipeline // nil disables POST /ingest
	Settings *conf.Settings

	logger      logger.Logger
	metrics     *observability.Metrics
	httpMetrics *metrics.HTTPMetrics
	renderCache *cache.Cache // rendered JPEG bytes keyed by image and options
	ingestMu    sync.Mutex   // one ingestion at a time
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// New creates the controller and registers its routes on e. m may be nil.
func New(e *echo.Echo, cat *catalog.Catalog, pipeline *ingest.Pipeline, settings *conf.Settings,
	log logger.Logger, m *observability.Metrics) *Controller {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	ttl := settings.WebServer.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	c := &Controller{
		Echo:        e,
		Catalog:     cat,
		Pipeline:    pipeline,
		Settings:    settings,
		logger:      log.Module("api"),
		metrics:     m,
		renderCache: cache.New(ttl, 2*ttl),
	}
	if m != nil {
		c.httpMetrics = m.HTTP
	}

	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(c.requestMiddleware)

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.Group.GET("/sites", c.GetStudySites)
	c.Group.GET("/sites/:site/dates", c.GetDates)
	c.Group.GET("/sites/:site/dates/:date/cameras", c.GetCameras)
	c.Group.GET("/cameras/:name", c.GetCamera)
	c.Group.GET("/resolve", c.ResolveSelection)

	c.Group.GET("/flights", c.GetFlight)
	c.Group.GET("/flights/:id/cameras/:cameraID/images", c.GetImageCoordinates)
	c.Group.GET("/flights/:id/cameras/:cameraID/labels", c.GetImageLabels)
	c.Group.GET("/flights/:id/ortho", c.GetOrtho)

	c.Group.GET("/images/:id", c.GetImage)
	c.Group.PUT("/images/:id/paths", c.UpdateImagePaths)
	c.Group.GET("/images/:id/render", c.RenderImage)
	c.Group.GET("/images/:id/exif", c.GetImageExif)

	c.Group.POST("/ingest", c.RunIngest)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// requestMiddleware tags each request with an id and records its outcome
func (c *Controller) requestMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		requestID := req.Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
		ctx.Set("request_id", requestID)
		// Catalog and ingest logs for this request carry the id as trace_id.
		req = req.WithContext(logger.WithTraceID(req.Context(), requestID))
		ctx.SetRequest(req)

		start := time.Now()
		err := next(ctx)
		if err != nil {
			ctx.Error(err)
		}

		elapsed := time.Since(start)
		status := ctx.Response().Status
		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		c.httpMetrics.RecordRequest(req.Method, route, status, elapsed)
		c.logger.WithContext(req.Context()).Debug("request served",
			logger.String("method", req.Method),
			logger.String("path", req.URL.Path),
			logger.Int("status", status),
			logger.Duration("elapsed", elapsed))
		return nil
	}
}

// HealthCheck reports whether the catalog answers queries.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"version":   c.Settings.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	counts, err := c.Catalog.Store().TableCounts(ctx.Request().Context())
	if err != nil {
		response["status"] = "degraded"
		response["database_status"] = "disconnected"
		response["database_error"] = err.Error()
		return ctx.JSON(http.StatusServiceUnavailable, response)
	}
	response["database_status"] = "connected"
	response["tables"] = counts
	return ctx.JSON(http.StatusOK, response)
}

// HandleError logs err and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID(ctx),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Request().URL.Path),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		fields = append(fields,
			logger.String("component", ee.GetComponent()),
			logger.String("category", ee.GetCategory()))
	}
	log := c.logger.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// handleCatalogError maps catalog error kinds to status codes.
func (c *Controller) handleCatalogError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case errors.Is(err, errors.ErrRawDecodeUnsupported):
		return c.HandleError(ctx, err, "Image has only a RAW file; loading raw files is not supported", http.StatusUnprocessableEntity)
	case errors.IsCategory(err, errors.CategoryValidation):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	case errors.Is(err, errors.ErrStorageUnavailable):
		return c.HandleError(ctx, err, "Catalog storage unavailable", http.StatusServiceUnavailable)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

func correlationID(ctx echo.Context) string {
	if id, ok := ctx.Get("request_id").(string); ok && id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

// invalidateCaches drops cached lists and renders after the catalog changed
func (c *Controller) invalidateCaches() {
	c.Catalog.Invalidate()
	c.renderCache.Flush()
}
