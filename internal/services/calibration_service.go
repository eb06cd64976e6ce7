package services

import (
	"fmt"

	apperrors "github.com/ajharbinger/lead-funnel/internal/errors"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
)

// calibrationService implements CalibrationService over a registry
type calibrationService struct {
	registry *scoring.Registry
}

// NewCalibrationService creates a calibration service
func NewCalibrationService(registry *scoring.Registry) CalibrationService {
	return &calibrationService{registry: registry}
}

// List returns every registered calibration ordered by ID
func (s *calibrationService) List() []*scoring.Calibration {
	return s.registry.List()
}

// Get returns one calibration or a NOT_FOUND error
func (s *calibrationService) Get(id string) (*scoring.Calibration, error) {
	cal, ok := s.registry.Get(id)
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("calibration %q not found", id), nil).
			WithOperation("get_calibration")
	}
	return cal, nil
}

// DefaultID returns the calibration used when none is named
func (s *calibrationService) DefaultID() string {
	return s.registry.DefaultID()
}

// ReloadStatus reports how calibration file reloads have gone
func (s *calibrationService) ReloadStatus() scoring.ReloadStatus {
	return s.registry.Reloads().Status()
}
