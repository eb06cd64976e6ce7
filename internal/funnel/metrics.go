package funnel

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/ajharbinger/lead-funnel/internal/models"
)

// Metric names written by WriteMetrics
const (
	MetricExpectedValue      = "lead_funnel_expected_value"
	MetricOwnerExpectedValue = "lead_funnel_owner_expected_value"
	MetricLeads              = "lead_funnel_leads"
	MetricStaleLeads         = "lead_funnel_stale_leads"
	MetricOverflow           = "lead_funnel_overflow"
	MetricHistoricalCeiling  = "lead_funnel_historical_ceiling"
)

// MetricFamilies renders a summary as Prometheus gauges labelled with the
// calibration that produced it
func MetricFamilies(summary models.FunnelSummary, calibrationID string) []*dto.MetricFamily {
	calibration := label("calibration", calibrationID)

	overflow := 0.0
	if summary.Overflow {
		overflow = 1
	}

	owners := make([]*dto.Metric, 0, len(summary.Owners))
	for _, ot := range summary.Owners {
		owners = append(owners, gauge(ot.Total, calibration, label("owner", ot.Owner)))
	}

	return []*dto.MetricFamily{
		family(MetricExpectedValue, "Sum of expected values over all scored leads.",
			gauge(summary.Total, calibration)),
		family(MetricOwnerExpectedValue, "Expected value accumulated per owner.", owners...),
		family(MetricLeads, "Leads that contributed to the funnel.",
			gauge(float64(summary.LeadCount), calibration)),
		family(MetricStaleLeads, "Leads open longer than the average close time.",
			gauge(float64(summary.StaleCount), calibration)),
		family(MetricOverflow, "1 when the funnel total exceeds the historical ceiling.",
			gauge(overflow, calibration)),
		family(MetricHistoricalCeiling, "Largest funnel total observed historically.",
			gauge(summary.Ceiling, calibration)),
	}
}

// WriteMetrics writes the summary in the Prometheus text exposition format
func WriteMetrics(w io.Writer, summary models.FunnelSummary, calibrationID string) error {
	for _, mf := range MetricFamilies(summary, calibrationID) {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func family(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   &name,
		Help:   &help,
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func gauge(value float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: &value},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: &name, Value: &value}
}
