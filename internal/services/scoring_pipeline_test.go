package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ajharbinger/lead-funnel/internal/errors"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/models"
	"github.com/ajharbinger/lead-funnel/internal/normalizer"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
)

var evalAt = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T, workers int) *Evaluator {
	t.Helper()
	registry, err := scoring.NewRegistry(scoring.BaselineID, scoring.DefaultCalibrations()...)
	require.NoError(t, err)
	return NewEvaluator(registry, normalizer.DefaultOptions(), workers, logger.NewNopLogger())
}

func record(name, owner, budget, interactions, channel, stage string, email, message, call bool, created string) normalizer.RawRecord {
	return normalizer.RawRecord{
		"name":              name,
		"owner":             owner,
		"budget":            budget,
		"interaction_count": interactions,
		"channel":           channel,
		"stage":             stage,
		"replied_email":     fmt.Sprint(email),
		"replied_message":   fmt.Sprint(message),
		"replied_call":      fmt.Sprint(call),
		"created_at":        created,
	}
}

func sampleRecords() []normalizer.RawRecord {
	return []normalizer.RawRecord{
		record("Casa Robles", "Ana", "480000", "6", "Meta", "Negotiation", true, true, true, "2024-05-01"),
		record("Depto Roma", "Luis", "300000", "2", "Referido", "Design", false, true, false, "2024-01-10"),
		record("Lote Norte", "Ana", "900000", "1", "Meta", "Analysis", false, false, false, "2024-06-01"),
		record("Casa Sur", "", "500000", "4", "Google", "Análisis", true, false, false, "2023-12-01"),
		record("Vendida", "Luis", "700000", "9", "Meta", "Closed Won", true, true, true, "2024-02-01"),
		{"name": "Sin etapa", "budget": "100", "interaction_count": "1", "channel": "Meta"},
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := newTestEvaluator(t, 4)

	result, err := evaluator.Evaluate(context.Background(), sampleRecords(), EvaluateOptions{At: evalAt})
	require.NoError(t, err)

	assert.Equal(t, scoring.BaselineID, result.CalibrationID)
	assert.Equal(t, evalAt, result.EvaluatedAt)
	assert.NotEmpty(t, result.RunID.String())

	// closed lead excluded, missing stage rejected
	require.Len(t, result.Scored, 4)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 6, result.Rejected[0].Row)
	assert.Equal(t, 1, result.Summary.ExcludedTerminal)
	assert.Equal(t, 1, result.Stats.Excluded)
	assert.Equal(t, 6, result.Stats.Records)
	assert.Equal(t, 5, result.Stats.Accepted)

	// input order is preserved
	names := make([]string, 0, len(result.Scored))
	for _, s := range result.Scored {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Casa Robles", "Depto Roma", "Lote Norte", "Casa Sur"}, names)

	assert.InDelta(t, 0.46, result.Scored[0].FinalProbability, 1e-9)
	assert.InDelta(t, 220800, result.Scored[0].ExpectedValue, 1e-6)
	assert.Equal(t, models.GateAdmission, result.Scored[2].Gate)
	assert.Zero(t, result.Scored[2].ExpectedValue)

	total := 0.0
	for _, s := range result.Scored {
		total += s.ExpectedValue
	}
	assert.InDelta(t, total, result.Summary.Total, 1e-6)
	assert.Equal(t, 4, result.Summary.LeadCount)
	assert.Equal(t, "Ana", result.Summary.Owners[0].Owner)
}

func TestEvaluator_Idempotent(t *testing.T) {
	evaluator := newTestEvaluator(t, 3)
	opts := EvaluateOptions{CalibrationID: scoring.HorizonID, At: evalAt}

	first, err := evaluator.Evaluate(context.Background(), sampleRecords(), opts)
	require.NoError(t, err)
	second, err := evaluator.Evaluate(context.Background(), sampleRecords(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Scored, second.Scored)
	assert.Equal(t, first.Summary, second.Summary)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEvaluator_WorkerCountDoesNotChangeResults(t *testing.T) {
	records := make([]normalizer.RawRecord, 0, 250)
	for i := 0; i < 250; i++ {
		records = append(records, record(
			fmt.Sprintf("Lead %d", i),
			[]string{"Ana", "Luis", "Mia"}[i%3],
			fmt.Sprint(400000+i*1000),
			fmt.Sprint(i%8),
			[]string{"Meta", "Google"}[i%2],
			[]string{"Analysis", "Design", "Negotiation"}[i%3],
			i%2 == 0, i%3 == 0, i%5 == 0,
			evalAt.AddDate(0, 0, -i).Format("2006-01-02"),
		))
	}

	opts := EvaluateOptions{CalibrationID: scoring.DecayID, At: evalAt}
	sequential, err := newTestEvaluator(t, 1).Evaluate(context.Background(), records, opts)
	require.NoError(t, err)
	parallel, err := newTestEvaluator(t, 8).Evaluate(context.Background(), records, opts)
	require.NoError(t, err)

	assert.Equal(t, sequential.Scored, parallel.Scored)
	assert.Equal(t, sequential.Summary, parallel.Summary)
}

func TestEvaluator_NoValidRecords(t *testing.T) {
	evaluator := newTestEvaluator(t, 2)

	records := []normalizer.RawRecord{
		{"name": "Only name"},
		{"budget": "100"},
	}

	_, err := evaluator.Evaluate(context.Background(), records, EvaluateOptions{At: evalAt})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNoValidRecords, apperrors.Code(err))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	rejected, ok := appErr.Details.([]normalizer.Rejection)
	require.True(t, ok)
	assert.Len(t, rejected, 2)

	_, err = evaluator.Evaluate(context.Background(), nil, EvaluateOptions{At: evalAt})
	assert.Equal(t, apperrors.ErrCodeNoValidRecords, apperrors.Code(err))
}

func TestEvaluator_UnknownCalibration(t *testing.T) {
	evaluator := newTestEvaluator(t, 2)

	_, err := evaluator.Evaluate(context.Background(), sampleRecords(), EvaluateOptions{CalibrationID: "nope"})
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.Code(err))
}

func TestEvaluator_RequireOwner(t *testing.T) {
	evaluator := newTestEvaluator(t, 2)

	result, err := evaluator.Evaluate(context.Background(), sampleRecords(), EvaluateOptions{At: evalAt, RequireOwner: true})
	require.NoError(t, err)
	// "Casa Sur" has no owner, "Sin etapa" lacks stage and owner
	assert.Len(t, result.Rejected, 2)
}

func TestEvaluator_RequireCreatedAtOnlyWithDecay(t *testing.T) {
	evaluator := newTestEvaluator(t, 2)
	records := []normalizer.RawRecord{
		record("Casa Robles", "Ana", "480000", "6", "Meta", "Negotiation", true, true, true, ""),
	}

	_, err := evaluator.Evaluate(context.Background(), records,
		EvaluateOptions{CalibrationID: scoring.DecayID, At: evalAt, RequireCreatedAt: true})
	assert.Equal(t, apperrors.ErrCodeNoValidRecords, apperrors.Code(err))

	result, err := evaluator.Evaluate(context.Background(), records,
		EvaluateOptions{CalibrationID: scoring.BaselineID, At: evalAt, RequireCreatedAt: true})
	require.NoError(t, err)
	assert.Len(t, result.Scored, 1)
}

func TestEvaluator_CertainPolicyKeepsClosedLeads(t *testing.T) {
	evaluator := newTestEvaluator(t, 2)

	result, err := evaluator.Evaluate(context.Background(), sampleRecords(),
		EvaluateOptions{CalibrationID: scoring.FullID, At: evalAt})
	require.NoError(t, err)

	assert.Len(t, result.Scored, 5)
	assert.Zero(t, result.Summary.ExcludedTerminal)
	assert.Equal(t, 1.0, result.Scored[4].FinalProbability)
	assert.Equal(t, 700000.0, result.Scored[4].ExpectedValue)
}

func TestEvaluator_ContextCancelled(t *testing.T) {
	evaluator := newTestEvaluator(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := evaluator.Evaluate(ctx, sampleRecords(), EvaluateOptions{At: evalAt})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluator_DefaultsToNow(t *testing.T) {
	evaluator := newTestEvaluator(t, 1)
	evaluator.now = func() time.Time { return evalAt }

	result, err := evaluator.Evaluate(context.Background(), sampleRecords(), EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, evalAt, result.EvaluatedAt)
	require.NotNil(t, result.Scored[0].DaysSinceCreation)
	assert.Equal(t, 45, *result.Scored[0].DaysSinceCreation)
}

func TestPipelineStats_Summary(t *testing.T) {
	stats := PipelineStats{Records: 10, Accepted: 8, Rejected: 2, Excluded: 1, Workers: 4, Duration: 1500 * time.Microsecond}
	assert.Equal(t, "records=10, accepted=8, rejected=2, excluded=1, workers=4, duration=2ms", stats.Summary())
}
