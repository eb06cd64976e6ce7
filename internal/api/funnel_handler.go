package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ajharbinger/lead-funnel/internal/errors"
	"github.com/ajharbinger/lead-funnel/internal/funnel"
	"github.com/ajharbinger/lead-funnel/internal/ingest"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/normalizer"
	"github.com/ajharbinger/lead-funnel/internal/services"
)

// MaxRecordsPerRequest caps the size of one evaluation
const MaxRecordsPerRequest = 10000

const (
	evaluateTimeout   = 30 * time.Second
	metricsContent    = "text/plain; version=0.0.4; charset=utf-8"
	uploadField       = "csv_file"
	mimeCSV           = "text/csv"
	mimeMultipartForm = "multipart/form-data"
)

// FunnelHandler scores uploaded lead batches
type FunnelHandler struct {
	evaluation services.EvaluationService
	export     *services.LeadExportService
	log        logger.Logger
}

// NewFunnelHandler creates a new funnel handler
func NewFunnelHandler(evaluation services.EvaluationService, export *services.LeadExportService, log logger.Logger) *FunnelHandler {
	return &FunnelHandler{
		evaluation: evaluation,
		export:     export,
		log:        log,
	}
}

// EvaluateRequest carries the records and run options. With a CSV body the
// options come from the query string or form fields instead.
type EvaluateRequest struct {
	CalibrationID    string                 `json:"calibration_id" form:"calibration_id"`
	At               string                 `json:"evaluated_at" form:"evaluated_at"`
	RequireOwner     bool                   `json:"require_owner" form:"require_owner"`
	RequireCreatedAt bool                   `json:"require_created_at" form:"require_created_at"`
	Records          []normalizer.RawRecord `json:"records" form:"-"`
}

// Evaluate scores a batch and returns every scored lead with the summary
func (h *FunnelHandler) Evaluate(c *gin.Context) {
	result, ok := h.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// Summary scores a batch and returns only the funnel summary
func (h *FunnelHandler) Summary(c *gin.Context) {
	result, ok := h.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":         result.RunID,
		"calibration_id": result.CalibrationID,
		"evaluated_at":   result.EvaluatedAt,
		"summary":        result.Summary,
		"rejected":       result.Rejected,
		"stats":          result.Stats,
	})
}

// Metrics scores a batch and renders the summary as Prometheus text
func (h *FunnelHandler) Metrics(c *gin.Context) {
	result, ok := h.run(c)
	if !ok {
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", metricsContent)
	if err := funnel.WriteMetrics(c.Writer, result.Summary, result.CalibrationID); err != nil {
		h.log.Error("Failed to write metrics", err, "run_id", result.RunID.String())
	}
}

// Export scores a batch and downloads the filtered leads as JSON or CSV
func (h *FunnelHandler) Export(c *gin.Context) {
	var options services.LeadExportOptions
	if err := c.ShouldBindQuery(&options); err != nil {
		respondError(c, h.log, apperrors.InvalidInput("Invalid export options", err))
		return
	}

	result, ok := h.run(c)
	if !ok {
		return
	}

	data, err := h.export.Export(result, options)
	if err != nil {
		respondError(c, h.log, apperrors.InvalidInput(err.Error(), err))
		return
	}

	contentType := "application/json"
	ext := "json"
	if options.Format == services.FormatCSV {
		contentType = mimeCSV
		ext = "csv"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=funnel-%s.%s", result.RunID, ext))
	c.Data(http.StatusOK, contentType, data)
}

// run parses the request and evaluates it, writing the error response
// itself when anything fails
func (h *FunnelHandler) run(c *gin.Context) (*services.EvaluationResult, bool) {
	req, err := h.parseRequest(c)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}

	opts, err := req.options()
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), evaluateTimeout)
	defer cancel()

	result, err := h.evaluation.Evaluate(ctx, req.Records, opts)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return result, true
}

func (h *FunnelHandler) parseRequest(c *gin.Context) (*EvaluateRequest, error) {
	var req EvaluateRequest

	switch c.ContentType() {
	case mimeMultipartForm:
		if err := c.ShouldBind(&req); err != nil {
			return nil, apperrors.InvalidInput("Invalid request format", err)
		}
		file, header, err := c.Request.FormFile(uploadField)
		if err != nil {
			return nil, apperrors.InvalidInput("No spreadsheet file provided", err)
		}
		defer file.Close()

		req.Records, err = ingest.Read(header.Filename, file)
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			return nil, apperrors.InvalidInput("File must be a CSV or XLSX spreadsheet", err)
		}
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Failed to parse %s: %v", header.Filename, err), err)
		}

	case mimeCSV:
		if err := c.ShouldBindQuery(&req); err != nil {
			return nil, apperrors.InvalidInput("Invalid query parameters", err)
		}
		records, err := ingest.ReadCSV(c.Request.Body)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Failed to parse CSV: %v", err), err)
		}
		req.Records = records

	default:
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperrors.InvalidInput("Invalid request format", err)
		}
	}

	if len(req.Records) > MaxRecordsPerRequest {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("Too many records. Maximum %d allowed per request", MaxRecordsPerRequest), nil)
	}
	return &req, nil
}

func (r *EvaluateRequest) options() (services.EvaluateOptions, error) {
	opts := services.EvaluateOptions{
		CalibrationID:    strings.TrimSpace(r.CalibrationID),
		RequireOwner:     r.RequireOwner,
		RequireCreatedAt: r.RequireCreatedAt,
	}
	if at := strings.TrimSpace(r.At); at != "" {
		parsed, err := parseInstant(at)
		if err != nil {
			return opts, apperrors.InvalidInput(fmt.Sprintf("Invalid evaluation time %q", at), err)
		}
		opts.At = parsed
	}
	return opts, nil
}

func parseInstant(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}
