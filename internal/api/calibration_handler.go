package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/services"
)

// CalibrationHandler exposes the registered calibrations
type CalibrationHandler struct {
	calibrations services.CalibrationService
	log          logger.Logger
}

// NewCalibrationHandler creates a new calibration handler
func NewCalibrationHandler(calibrations services.CalibrationService, log logger.Logger) *CalibrationHandler {
	return &CalibrationHandler{
		calibrations: calibrations,
		log:          log,
	}
}

// GetCalibrations returns all calibrations
func (h *CalibrationHandler) GetCalibrations(c *gin.Context) {
	cals := h.calibrations.List()
	c.JSON(http.StatusOK, gin.H{
		"calibrations": cals,
		"default_id":   h.calibrations.DefaultID(),
		"count":        len(cals),
	})
}

// GetCalibration returns a specific calibration
func (h *CalibrationHandler) GetCalibration(c *gin.Context) {
	cal, err := h.calibrations.Get(c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calibration": cal})
}

// Health reports liveness and the calibration reload state
func (h *CalibrationHandler) Health(c *gin.Context) {
	reloads := h.calibrations.ReloadStatus()
	status := "ok"
	if !reloads.IsHealthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":              status,
		"default_calibration": h.calibrations.DefaultID(),
		"calibrations":        len(h.calibrations.List()),
		"calibration_reloads": reloads,
	})
}
