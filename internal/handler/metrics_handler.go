package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/dto"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/middleware"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/response"
)

type storageReporter interface {
	Report(ctx context.Context, window time.Duration, actor *models.JWTClaims) (*dto.StorageReport, error)
}

// MetricsHandler exposes metadata-derived storage reports.
type MetricsHandler struct {
	reporter storageReporter
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(reporter storageReporter) *MetricsHandler {
	return &MetricsHandler{reporter: reporter}
}

// StorageReport godoc
// @Summary Storage usage, cost estimate and threshold alerts
// @Tags Metrics
// @Produce json
// @Param window query string false "Aggregation window, e.g. 24h or 168h; empty for all history"
// @Success 200 {object} response.Envelope
// @Router /metrics/storage [get]
func (h *MetricsHandler) StorageReport(c *gin.Context) {
	var window time.Duration
	if raw := strings.TrimSpace(c.Query("window")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "window must be a duration like 24h"))
			return
		}
		window = parsed
	}
	report, err := h.reporter.Report(c.Request.Context(), window, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
