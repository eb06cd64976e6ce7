package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/ajharbinger/lead-funnel/internal/errors"
	"github.com/ajharbinger/lead-funnel/internal/funnel"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/models"
	"github.com/ajharbinger/lead-funnel/internal/normalizer"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
)

// EvaluateOptions tunes a single run
type EvaluateOptions struct {
	// CalibrationID selects the calibration; empty uses the registry default
	CalibrationID string
	// At is the evaluation instant ages are measured against; zero means now.
	// Pass the same instant to reproduce a run exactly.
	At time.Time
	// RequireOwner rejects records without an owner
	RequireOwner bool
	// RequireCreatedAt rejects records without a creation date when the
	// calibration uses decay
	RequireCreatedAt bool
}

// EvaluationResult is the outcome of one run
type EvaluationResult struct {
	RunID         uuid.UUID              `json:"run_id"`
	CalibrationID string                 `json:"calibration_id"`
	EvaluatedAt   time.Time              `json:"evaluated_at"`
	Scored        []models.ScoredLead    `json:"scored"`
	Rejected      []normalizer.Rejection `json:"rejected"`
	Summary       models.FunnelSummary   `json:"summary"`
	Stats         PipelineStats          `json:"stats"`
}

// PipelineStats counts what happened to the records of one run
type PipelineStats struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Records   int           `json:"records"`
	Accepted  int           `json:"accepted"`
	Rejected  int           `json:"rejected"`
	Excluded  int           `json:"excluded"`
	Workers   int           `json:"workers"`
}

// Summary renders the stats for logs
func (s *PipelineStats) Summary() string {
	return fmt.Sprintf("records=%d, accepted=%d, rejected=%d, excluded=%d, workers=%d, duration=%v",
		s.Records, s.Accepted, s.Rejected, s.Excluded, s.Workers, s.Duration.Round(time.Millisecond))
}

// Evaluator runs normalize, score and aggregate over a batch of records
type Evaluator struct {
	registry *scoring.Registry
	engine   *scoring.ScoringEngine
	normOpts normalizer.Options
	workers  int
	log      logger.Logger
	now      func() time.Time
}

// NewEvaluator creates an evaluator scoring with up to workers goroutines
func NewEvaluator(registry *scoring.Registry, normOpts normalizer.Options, workers int, log logger.Logger) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Evaluator{
		registry: registry,
		engine:   scoring.NewScoringEngine(),
		normOpts: normOpts,
		workers:  workers,
		log:      log,
		now:      time.Now,
	}
}

// Evaluate scores records with the selected calibration. Rejected records
// are reported, not fatal, unless no record survives normalization.
// Leads excluded by the terminal policy are counted in the summary and left
// out of Scored.
func (e *Evaluator) Evaluate(ctx context.Context, records []normalizer.RawRecord, opts EvaluateOptions) (*EvaluationResult, error) {
	cal, ok := e.registry.Get(opts.CalibrationID)
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("calibration %q not found", opts.CalibrationID), nil).
			WithOperation("evaluate")
	}

	stats := PipelineStats{
		StartTime: time.Now(),
		Records:   len(records),
		Workers:   e.workers,
	}

	at := opts.At
	if at.IsZero() {
		at = e.now()
	}

	normOpts := e.normOpts
	normOpts.RequireOwner = normOpts.RequireOwner || opts.RequireOwner
	normOpts.RequireCreatedAt = normOpts.RequireCreatedAt || (opts.RequireCreatedAt && cal.Decay.Enabled)

	leads, rejected := normalizer.New(normOpts).NormalizeAll(records, at)
	if rejected == nil {
		rejected = []normalizer.Rejection{}
	}
	stats.Accepted = len(leads)
	stats.Rejected = len(rejected)

	if len(leads) == 0 {
		e.log.Warn("Evaluation has no valid records", "calibration_id", cal.ID, "records", len(records))
		return nil, apperrors.NoValidRecords(fmt.Sprintf("none of the %d records could be scored", len(records))).
			WithDetails(rejected).
			WithOperation("evaluate")
	}

	scored, err := e.scoreAll(ctx, leads, cal)
	if err != nil {
		return nil, err
	}

	summary := funnel.Summarize(scored, cal.HistoricalCeiling, cal.Decay.AverageCloseDays)

	kept := scored[:0]
	for _, s := range scored {
		if !s.Excluded() {
			kept = append(kept, s)
		}
	}
	stats.Excluded = len(scored) - len(kept)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	result := &EvaluationResult{
		RunID:         uuid.New(),
		CalibrationID: cal.ID,
		EvaluatedAt:   at,
		Scored:        kept,
		Rejected:      rejected,
		Summary:       summary,
		Stats:         stats,
	}

	e.log.Info("Evaluation completed",
		"run_id", result.RunID.String(),
		"calibration_id", cal.ID,
		"stats", stats.Summary(),
		"total", summary.Total,
		"overflow", summary.Overflow)
	if summary.Overflow {
		e.log.Warn("Funnel total exceeds historical ceiling",
			"run_id", result.RunID.String(),
			"total", summary.Total,
			"ceiling", summary.Ceiling)
	}

	return result, nil
}

// scoreAll fans leads out over the worker pool. Each worker writes its own
// slice positions, so output order matches input order.
func (e *Evaluator) scoreAll(ctx context.Context, leads []models.Lead, cal *scoring.Calibration) ([]models.ScoredLead, error) {
	scored := make([]models.ScoredLead, len(leads))

	chunk := (len(leads) + e.workers - 1) / e.workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for start := 0; start < len(leads); start += chunk {
		end := start + chunk
		if end > len(leads) {
			end = len(leads)
		}
		start := start
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				scored[i] = e.engine.Score(leads[i], cal)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score leads: %w", err)
	}
	return scored, nil
}
