package scoring

import (
	"fmt"

	"github.com/ajharbinger/lead-funnel/internal/models"
)

// Breakdown keys
const (
	DetailInteractions   = "interactions"
	DetailChannel        = "channel"
	DetailStage          = "stage"
	DetailBudget         = "budget"
	DetailContactEmail   = "contact_email"
	DetailContactMessage = "contact_message"
	DetailContactCall    = "contact_call"
	DetailDecay          = "decay"
	DetailHorizon        = "horizon"
	DetailMultiplier     = "multiplier"
	DetailGate           = "gate"
)

// ScoringEngine turns normalized leads into closing probabilities.
// It holds no state; the calibration is passed to every call.
type ScoringEngine struct{}

// NewScoringEngine creates a new scoring engine instance
func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// Score evaluates one lead against a calibration. It is total over
// normalized input: every lead gets a probability in [0, cal.Ceiling].
func (e *ScoringEngine) Score(lead models.Lead, cal *Calibration) models.ScoredLead {
	result := models.ScoredLead{
		Lead:          lead,
		DecayFactor:   1,
		HorizonFactor: 1,
		Breakdown:     make(map[string]models.ScoreDetail),
	}

	// Closed leads never reach the additive model
	if cal.isTerminal(lead) {
		switch cal.Terminal.Policy {
		case TerminalCertain:
			p := clamp(1, 0, cal.Ceiling)
			result.BaseProbability = p
			result.FinalProbability = p
			result.Gate = models.GateTerminal
			result.Breakdown[DetailGate] = models.ScoreDetail{
				Value:       p,
				Triggered:   true,
				Description: "TERMINAL: closed lead counted as certain",
			}
		default:
			result.Gate = models.GateTerminalDrop
			result.Breakdown[DetailGate] = models.ScoreDetail{
				Triggered:   true,
				Description: "TERMINAL: closed lead excluded from the funnel",
			}
		}
		result.ExpectedValue = lead.Budget * result.FinalProbability
		return result
	}

	// Admission gate: Analysis with no response at all is worthless
	if lead.Stage == models.StageAnalysis && !lead.AnyReply() {
		result.Gate = models.GateAdmission
		result.Breakdown[DetailGate] = models.ScoreDetail{
			Triggered:   true,
			Description: "GATE: analysis stage without any response",
		}
		return result
	}

	base := e.interactionBonus(lead, cal, result.Breakdown) +
		e.channelBonus(lead, cal, result.Breakdown) +
		e.stageBonus(lead, cal, result.Breakdown) +
		e.budgetBonus(lead, cal, result.Breakdown) +
		e.contactBonus(lead, cal, result.Breakdown)
	result.BaseProbability = clamp(base, 0, cal.Ceiling)

	if cal.AnalysisGate.Enabled && lead.Stage == models.StageAnalysis && !passesAnalysisGate(lead, cal.AnalysisGate) {
		result.Gate = models.GateAnalysis
		result.Breakdown[DetailGate] = models.ScoreDetail{
			Triggered: true,
			Description: fmt.Sprintf("GATE: analysis lead needs an answered call, %d+ interactions, or an answered message with %d+ interactions",
				cal.AnalysisGate.MinInteractions, cal.AnalysisGate.MessageMinInteractions),
		}
		return result
	}

	result.DecayFactor = cal.Decay.Factor(lead)
	result.Breakdown[DetailDecay] = models.ScoreDetail{
		Value:       result.DecayFactor,
		Triggered:   result.DecayFactor < 1,
		Description: decayDescription(lead, cal),
	}

	result.HorizonFactor = cal.Horizon.Factor(lead.Stage)
	result.Breakdown[DetailHorizon] = models.ScoreDetail{
		Value:       result.HorizonFactor,
		Triggered:   cal.Horizon.Enabled,
		Description: fmt.Sprintf("Horizon multiplier for stage %s", lead.Stage),
	}

	multiplier := cal.Multiplier
	result.Breakdown[DetailMultiplier] = models.ScoreDetail{
		Value:       multiplier,
		Triggered:   multiplier != 1,
		Description: "Calibration multiplier",
	}

	final := result.BaseProbability * result.DecayFactor * result.HorizonFactor * multiplier
	result.FinalProbability = clamp(final, 0, cal.Ceiling)
	result.ExpectedValue = lead.Budget * result.FinalProbability
	return result
}

func (e *ScoringEngine) interactionBonus(lead models.Lead, cal *Calibration, breakdown map[string]models.ScoreDetail) float64 {
	bonus := 0.0
	tier := -1
	for i, t := range cal.InteractionTiers {
		if lead.InteractionCount >= t.Min {
			bonus = t.Bonus
			tier = i
		}
	}

	description := fmt.Sprintf("%d interactions, below the first tier", lead.InteractionCount)
	if tier >= 0 {
		description = fmt.Sprintf("%d interactions, tier >= %d", lead.InteractionCount, cal.InteractionTiers[tier].Min)
	}
	breakdown[DetailInteractions] = models.ScoreDetail{
		Value:       bonus,
		Triggered:   tier >= 0,
		Description: description,
	}
	return bonus
}

func (e *ScoringEngine) channelBonus(lead models.Lead, cal *Calibration, breakdown map[string]models.ScoreDetail) float64 {
	bonus, listed := cal.channelBonus(lead.Channel)

	description := fmt.Sprintf("Channel %q", lead.Channel)
	if !listed {
		description += " (default)"
	}
	breakdown[DetailChannel] = models.ScoreDetail{
		Value:       bonus,
		Triggered:   bonus > 0,
		Description: description,
	}
	return bonus
}

func (e *ScoringEngine) stageBonus(lead models.Lead, cal *Calibration, breakdown map[string]models.ScoreDetail) float64 {
	bonus := cal.Stages[lead.Stage]
	breakdown[DetailStage] = models.ScoreDetail{
		Value:       bonus,
		Triggered:   bonus > 0,
		Description: fmt.Sprintf("Stage %s", lead.Stage),
	}
	return bonus
}

func (e *ScoringEngine) budgetBonus(lead models.Lead, cal *Calibration, breakdown map[string]models.ScoreDetail) float64 {
	band := cal.Budget
	inBand := lead.Budget >= band.Min && lead.Budget <= band.Max

	bonus := 0.0
	if inBand {
		bonus = band.Bonus
	}
	breakdown[DetailBudget] = models.ScoreDetail{
		Value:       bonus,
		Triggered:   inBand,
		Description: fmt.Sprintf("Budget %.2f within [%.0f, %.0f]", lead.Budget, band.Min, band.Max),
	}
	return bonus
}

func (e *ScoringEngine) contactBonus(lead models.Lead, cal *Calibration, breakdown map[string]models.ScoreDetail) float64 {
	contacts := []struct {
		key     string
		replied bool
		bonus   float64
		label   string
	}{
		{DetailContactEmail, lead.RepliedEmail, cal.Contact.Email, "Answered email"},
		{DetailContactMessage, lead.RepliedMessage, cal.Contact.Message, "Answered message"},
		{DetailContactCall, lead.RepliedCall, cal.Contact.Call, "Answered call"},
	}

	total := 0.0
	for _, c := range contacts {
		detail := models.ScoreDetail{Triggered: c.replied, Description: c.label}
		if c.replied {
			detail.Value = c.bonus
			total += c.bonus
		}
		breakdown[c.key] = detail
	}
	return total
}

func passesAnalysisGate(lead models.Lead, gate AnalysisGate) bool {
	if lead.RepliedCall {
		return true
	}
	if lead.InteractionCount >= gate.MinInteractions {
		return true
	}
	return lead.RepliedMessage && lead.InteractionCount >= gate.MessageMinInteractions
}

func decayDescription(lead models.Lead, cal *Calibration) string {
	switch {
	case !cal.Decay.Enabled:
		return "Decay disabled"
	case lead.DaysSinceCreation == nil:
		return "Age unknown, no decay"
	default:
		return fmt.Sprintf("%d days open, average close %d days", *lead.DaysSinceCreation, cal.Decay.AverageCloseDays)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
