package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ajharbinger/lead-funnel/internal/funnel"
	"github.com/ajharbinger/lead-funnel/internal/models"
)

// LeadExportService filters and exports the scored leads of a run
type LeadExportService struct{}

// NewLeadExportService creates a new lead export service
func NewLeadExportService() *LeadExportService {
	return &LeadExportService{}
}

// ExportFormat specifies the format for exporting leads
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// LeadExportOptions contains options for exporting leads
type LeadExportOptions struct {
	Format                ExportFormat `json:"format" form:"format"`
	IncludeScoreBreakdown bool         `json:"include_score_breakdown" form:"include_score_breakdown"`
	MinProbability        float64      `json:"min_probability" form:"min_probability"`
	Owner                 string       `json:"owner" form:"owner"`
	// SortByValue orders leads by expected value, highest first
	SortByValue bool `json:"sort_by_value" form:"sort_by_value"`
}

// Filter returns the scored leads matching the options, in run order unless
// SortByValue is set
func (s *LeadExportService) Filter(result *EvaluationResult, options LeadExportOptions) []models.ScoredLead {
	owner := ""
	if options.Owner != "" {
		owner = funnel.OwnerKey(options.Owner)
	}

	leads := make([]models.ScoredLead, 0, len(result.Scored))
	for _, lead := range result.Scored {
		if lead.FinalProbability < options.MinProbability {
			continue
		}
		if owner != "" && funnel.OwnerKey(lead.Owner) != owner {
			continue
		}
		leads = append(leads, lead)
	}

	if options.SortByValue {
		sort.SliceStable(leads, func(i, j int) bool {
			return leads[i].ExpectedValue > leads[j].ExpectedValue
		})
	}
	return leads
}

// Export renders the filtered leads in the requested format
func (s *LeadExportService) Export(result *EvaluationResult, options LeadExportOptions) ([]byte, error) {
	leads := s.Filter(result, options)

	switch options.Format {
	case FormatJSON, "":
		return s.exportToJSON(result, leads, options)
	case FormatCSV:
		return s.exportToCSV(leads)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", options.Format)
	}
}

// exportToJSON exports leads to JSON format
func (s *LeadExportService) exportToJSON(result *EvaluationResult, leads []models.ScoredLead, options LeadExportOptions) ([]byte, error) {
	if !options.IncludeScoreBreakdown {
		stripped := make([]models.ScoredLead, len(leads))
		for i, lead := range leads {
			lead.Breakdown = nil
			stripped[i] = lead
		}
		leads = stripped
	}

	exportData := map[string]interface{}{
		"run_id":         result.RunID,
		"calibration_id": result.CalibrationID,
		"evaluated_at":   result.EvaluatedAt,
		"leads":          leads,
		"count":          len(leads),
		"exported_at":    time.Now().UTC(),
	}

	return json.MarshalIndent(exportData, "", "  ")
}

// exportToCSV exports leads to CSV format
func (s *LeadExportService) exportToCSV(leads []models.ScoredLead) ([]byte, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	headers := []string{
		"row", "name", "owner", "stage", "budget", "interaction_count", "channel",
		"replied_email", "replied_message", "replied_call", "days_since_creation",
		"base_probability", "decay_factor", "horizon_factor", "final_probability",
		"expected_value", "gate",
	}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}

	for _, lead := range leads {
		row := []string{
			strconv.Itoa(lead.Row),
			lead.Name,
			funnel.OwnerKey(lead.Owner),
			string(lead.Stage),
			formatFloat(lead.Budget, 2),
			strconv.Itoa(lead.InteractionCount),
			lead.Channel,
			strconv.FormatBool(lead.RepliedEmail),
			strconv.FormatBool(lead.RepliedMessage),
			strconv.FormatBool(lead.RepliedCall),
			formatNullInt(lead.DaysSinceCreation),
			formatFloat(lead.BaseProbability, 4),
			formatFloat(lead.DecayFactor, 4),
			formatFloat(lead.HorizonFactor, 4),
			formatFloat(lead.FinalProbability, 4),
			formatFloat(lead.ExpectedValue, 2),
			string(lead.Gate),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return []byte(output.String()), nil
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatNullInt(val *int) string {
	if val == nil {
		return ""
	}
	return strconv.Itoa(*val)
}
