package scoring

import "github.com/ajharbinger/lead-funnel/internal/models"

// Built-in calibration IDs
const (
	BaselineID     = "baseline-70"
	ConservativeID = "conservative-40"
	DecayID        = "decay-90"
	HorizonID      = "horizon-30d"
	FullID         = "full-100"
)

// BaselineCalibration returns the original dashboard calibration: additive
// bonuses capped at 0.70, closed leads excluded, no decay or horizon.
// It also supplies the defaults for calibration files.
func BaselineCalibration() *Calibration {
	return &Calibration{
		ID:          BaselineID,
		Name:        "Baseline (70% cap)",
		Description: "Additive engagement, channel, stage, budget and contact bonuses capped at 70%",
		Ceiling:     0.70,
		InteractionTiers: []InteractionTier{
			{Min: 2, Bonus: 0.01},
			{Min: 4, Bonus: 0.03},
			{Min: 6, Bonus: 0.06},
		},
		Channels: ChannelTable{
			Bonuses: map[string]float64{"Meta": 0.01},
			Default: 0.04,
		},
		Stages: map[models.Stage]float64{
			models.StageAnalysis:    0,
			models.StageDesign:      0.05,
			models.StageNegotiation: 0.20,
		},
		Budget:  BudgetBand{Min: 450000, Max: 520000, Bonus: 0.06},
		Contact: ContactBonuses{Email: 0.01, Message: 0.02, Call: 0.10},
		Decay: DecayConfig{
			Enabled:          false,
			AverageCloseDays: 45,
			HalfLifeDays: map[models.Stage]float64{
				models.StageAnalysis:    15,
				models.StageDesign:      30,
				models.StageNegotiation: 45,
			},
			DefaultHalfLifeDays: 30,
			Floor:               0.10,
			StepDowns: []StepDown{
				{OverdueDays: 60, Multiplier: 0.75},
				{OverdueDays: 120, Multiplier: 0.50},
			},
		},
		Horizon: HorizonConfig{
			Enabled: false,
			Multipliers: map[models.Stage]float64{
				models.StageAnalysis:    0.40,
				models.StageDesign:      0.70,
				models.StageNegotiation: 1.00,
			},
			Default: 0.50,
		},
		Terminal: TerminalConfig{
			Policy:   TerminalExclude,
			Synonyms: []string{"won", "cerrado ganado", "ganado", "vendido"},
		},
		AnalysisGate: AnalysisGate{
			Enabled:                false,
			MinInteractions:        4,
			MessageMinInteractions: 2,
		},
		Multiplier:        1.0,
		HistoricalCeiling: 1000000,
	}
}

// ConservativeCalibration caps probabilities at 40% and demands real
// engagement from Analysis leads
func ConservativeCalibration() *Calibration {
	c := BaselineCalibration()
	c.ID = ConservativeID
	c.Name = "Conservative (40% cap)"
	c.Description = "Baseline bonuses capped at 40% with the secondary Analysis gate"
	c.Ceiling = 0.40
	c.AnalysisGate.Enabled = true
	return c
}

// DecayCalibration allows up to 90% but discounts leads open past the
// average close time
func DecayCalibration() *Calibration {
	c := BaselineCalibration()
	c.ID = DecayID
	c.Name = "Decay (90% cap)"
	c.Description = "Baseline bonuses capped at 90% with half-life decay for overdue leads"
	c.Ceiling = 0.90
	c.Decay.Enabled = true
	return c
}

// HorizonCalibration estimates the chance of closing within a 30 day window
func HorizonCalibration() *Calibration {
	c := BaselineCalibration()
	c.ID = HorizonID
	c.Name = "30 day horizon"
	c.Description = "Probability of closing within 30 days: decay after 30 days plus stage horizon multipliers"
	c.Decay.Enabled = true
	c.Decay.AverageCloseDays = 30
	c.Horizon.Enabled = true
	return c
}

// FullCalibration uses the whole probability range and counts closed leads
// as certain
func FullCalibration() *Calibration {
	c := BaselineCalibration()
	c.ID = FullID
	c.Name = "Full range"
	c.Description = "Uncapped probabilities, decay and analysis gate enabled, closed leads counted at 100%"
	c.Ceiling = 1.0
	c.Decay.Enabled = true
	c.AnalysisGate.Enabled = true
	c.Terminal.Policy = TerminalCertain
	return c
}

// DefaultCalibrations returns fresh copies of every built-in calibration
func DefaultCalibrations() []*Calibration {
	return []*Calibration{
		BaselineCalibration(),
		ConservativeCalibration(),
		DecayCalibration(),
		HorizonCalibration(),
		FullCalibration(),
	}
}
