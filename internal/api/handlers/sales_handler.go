package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/andresuchdata/seller-analytics/internal/loader"
	"github.com/andresuchdata/seller-analytics/internal/render"
	"github.com/andresuchdata/seller-analytics/internal/repository"
	"github.com/andresuchdata/seller-analytics/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SalesReporter is the part of service.SalesReportService used over HTTP.
type SalesReporter interface {
	AnalyzeDataset(ctx context.Context, dataset *domain.Dataset, opts service.ReportOptions) (*analytics.Report, error)
	ReportForDataset(ctx context.Context, datasetID string, opts service.ReportOptions) (*analytics.Report, error)
	ListDatasets(ctx context.Context, limit int) ([]domain.DatasetInfo, error)
}

type SalesHandler struct {
	service      SalesReporter
	maxBodyBytes int64
}

func NewSalesHandler(service SalesReporter, maxBodyBytes int64) *SalesHandler {
	return &SalesHandler{service: service, maxBodyBytes: maxBodyBytes}
}

// AnalyzeInline handles POST /analytics/sales with the dataset as the request body.
func (h *SalesHandler) AnalyzeInline(c *gin.Context) {
	opts, format, err := parseReportQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body := c.Request.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodyBytes)
	}

	dataset, err := loader.LoadJSON(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "dataset exceeds the request size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.AnalyzeDataset(c.Request.Context(), dataset, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	writeReport(c, format, report)
}

// GetDatasetReport handles GET /analytics/sales/:dataset_id.
func (h *SalesHandler) GetDatasetReport(c *gin.Context) {
	opts, format, err := parseReportQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.ReportForDataset(c.Request.Context(), c.Param("dataset_id"), opts)
	if err != nil {
		writeError(c, err)
		return
	}

	writeReport(c, format, report)
}

func (h *SalesHandler) ListDatasets(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	datasets, err := h.service.ListDatasets(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": datasets})
}

func parseReportQuery(c *gin.Context) (service.ReportOptions, render.Format, error) {
	var opts service.ReportOptions

	if raw := strings.TrimSpace(c.Query("bonus_rounding")); raw != "" {
		rounding, err := analytics.ParseBonusRounding(raw)
		if err != nil {
			return opts, "", err
		}
		opts.BonusRounding = rounding
	}

	if raw := strings.TrimSpace(c.Query("top")); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil || top <= 0 {
			return opts, "", errors.New("top must be a positive integer")
		}
		opts.TopProducts = top
	}

	format := render.FormatJSON
	if raw := strings.TrimSpace(c.Query("format")); raw != "" {
		parsed, err := render.ParseFormat(raw)
		if err != nil {
			return opts, "", err
		}
		format = parsed
	}

	return opts, format, nil
}

func writeReport(c *gin.Context, format render.Format, report *analytics.Report) {
	switch format {
	case render.FormatCSV:
		c.Header("Content-Type", "text/csv; charset=utf-8")
	case render.FormatTable:
		c.Header("Content-Type", "text/plain; charset=utf-8")
	default:
		c.JSON(http.StatusOK, report)
		return
	}

	c.Status(http.StatusOK)
	if err := render.Write(c.Writer, format, report); err != nil {
		log.Error().Err(err).Msg("failed to render report")
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidDataset),
		errors.Is(err, analytics.ErrInvalidOptions),
		errors.Is(err, analytics.ErrStrategyMismatch),
		errors.Is(err, analytics.ErrStrategyNotCallable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrDatasetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
