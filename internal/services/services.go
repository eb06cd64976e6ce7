package services

import (
	"context"

	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/normalizer"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

// Services contains all application services
type Services struct {
	Evaluation   EvaluationService
	Calibrations CalibrationService
	Export       *LeadExportService
}

// EvaluationService scores a batch of raw records and aggregates the funnel
type EvaluationService interface {
	Evaluate(ctx context.Context, records []normalizer.RawRecord, opts EvaluateOptions) (*EvaluationResult, error)
}

// CalibrationService exposes the calibrations a run can use
type CalibrationService interface {
	List() []*scoring.Calibration
	Get(id string) (*scoring.Calibration, error)
	DefaultID() string
	ReloadStatus() scoring.ReloadStatus
}

// NewServices creates a new Services instance with all dependencies
func NewServices(registry *scoring.Registry, cfg *config.Config, log logger.Logger) *Services {
	normOpts := normalizer.DefaultOptions()
	normOpts.RequireOwner = cfg.RequireOwner

	return &Services{
		Evaluation:   NewEvaluator(registry, normOpts, cfg.Workers, log),
		Calibrations: NewCalibrationService(registry),
		Export:       NewLeadExportService(),
	}
}
