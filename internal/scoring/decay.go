package scoring

import (
	"math"

	"github.com/ajharbinger/lead-funnel/internal/models"
)

// Factor discounts a lead that is still open past the average close
// time. Formula:
//
//	overdue = max(0, days - AverageCloseDays)
//	factor  = max(Floor, 0.5^(overdue / halfLife(stage)) * stepDown(overdue))
//
// Unknown age and disabled decay return 1.
func (d DecayConfig) Factor(lead models.Lead) float64 {
	if !d.Enabled || lead.DaysSinceCreation == nil {
		return 1
	}

	overdue := *lead.DaysSinceCreation - d.AverageCloseDays
	if overdue <= 0 {
		return 1
	}

	factor := math.Pow(0.5, float64(overdue)/d.halfLife(lead.Stage)) * d.stepDown(overdue)
	if factor < d.Floor {
		return d.Floor
	}
	if factor > 1 {
		return 1
	}
	return factor
}

func (d DecayConfig) halfLife(stage models.Stage) float64 {
	if hl, ok := d.HalfLifeDays[stage]; ok && hl > 0 {
		return hl
	}
	if d.DefaultHalfLifeDays > 0 {
		return d.DefaultHalfLifeDays
	}
	return 30
}

// stepDown returns the multiplier of the highest tier the lead has crossed
func (d DecayConfig) stepDown(overdue int) float64 {
	multiplier := 1.0
	for _, step := range d.StepDowns {
		if overdue >= step.OverdueDays {
			multiplier = step.Multiplier
		}
	}
	return multiplier
}

// Factor returns the stage multiplier, or 1 when the horizon is disabled
func (h HorizonConfig) Factor(stage models.Stage) float64 {
	if !h.Enabled {
		return 1
	}
	if m, ok := h.Multipliers[stage]; ok {
		return m
	}
	return h.Default
}
