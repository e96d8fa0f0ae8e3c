package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flower-explorer/vistool/internal/logger"
)

// RunIngest handles POST /api/v1/ingest. Only one run may be active; a second request gets 409.
func (c *Controller) RunIngest(ctx echo.Context) error {
	if c.Pipeline == nil {
		return c.HandleError(ctx, nil, "Ingestion is not available on this server", http.StatusServiceUnavailable)
	}
	if !c.ingestMu.TryLock() {
		return c.HandleError(ctx, nil, "An ingestion run is already in progress", http.StatusConflict)
	}
	defer c.ingestMu.Unlock()

	report, err := c.Pipeline.Run(ctx.Request().Context())
	if err != nil {
		return c.handleCatalogError(ctx, err, "Ingestion failed")
	}
	c.invalidateCaches()

	c.logger.Info("ingestion triggered over HTTP",
		logger.String("run_id", report.RunID),
		logger.Int("warnings", len(report.Warnings)))
	return ctx.JSON(http.StatusOK, report)
}
