package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ajharbinger/lead-funnel/internal/models"
	"github.com/ajharbinger/lead-funnel/internal/normalizer"
)

// TerminalPolicy decides what happens to leads that already closed
type TerminalPolicy string

const (
	// TerminalExclude drops closed leads from the funnel
	TerminalExclude TerminalPolicy = "exclude"
	// TerminalCertain counts closed leads at probability 1.0 (clamped to the ceiling)
	TerminalCertain TerminalPolicy = "certain"
)

// InteractionTier awards Bonus once a lead reaches Min interactions
type InteractionTier struct {
	Min   int     `json:"min" yaml:"min" validate:"gte=0"`
	Bonus float64 `json:"bonus" yaml:"bonus" validate:"gte=0,lte=1"`
}

// ChannelTable maps acquisition channels to a bonus. Keys match
// case and accent insensitively; anything unlisted gets Default.
type ChannelTable struct {
	Bonuses map[string]float64 `json:"bonuses" yaml:"bonuses" validate:"dive,gte=0,lte=1"`
	Default float64            `json:"default" yaml:"default" validate:"gte=0,lte=1"`
}

// BudgetBand awards Bonus to budgets inside [Min, Max]
type BudgetBand struct {
	Min   float64 `json:"min" yaml:"min" validate:"gte=0"`
	Max   float64 `json:"max" yaml:"max" validate:"gtefield=Min"`
	Bonus float64 `json:"bonus" yaml:"bonus" validate:"gte=0,lte=1"`
}

// ContactBonuses are added per answered channel
type ContactBonuses struct {
	Email   float64 `json:"email" yaml:"email" validate:"gte=0,lte=1"`
	Message float64 `json:"message" yaml:"message" validate:"gte=0,lte=1"`
	Call    float64 `json:"call" yaml:"call" validate:"gte=0,lte=1"`
}

// StepDown multiplies the decay factor once a lead is OverdueDays past the
// average close time
type StepDown struct {
	OverdueDays int     `json:"overdue_days" yaml:"overdue_days" validate:"gt=0"`
	Multiplier  float64 `json:"multiplier" yaml:"multiplier" validate:"gt=0,lte=1"`
}

// DecayConfig discounts leads that stay open past the average close time
type DecayConfig struct {
	Enabled             bool                     `json:"enabled" yaml:"enabled"`
	AverageCloseDays    int                      `json:"average_close_days" yaml:"average_close_days" validate:"gte=0"`
	HalfLifeDays        map[models.Stage]float64 `json:"half_life_days" yaml:"half_life_days" validate:"dive,gt=0"`
	DefaultHalfLifeDays float64                  `json:"default_half_life_days" yaml:"default_half_life_days" validate:"gt=0"`
	Floor               float64                  `json:"floor" yaml:"floor" validate:"gt=0,lte=1"`
	StepDowns           []StepDown               `json:"step_downs" yaml:"step_downs" validate:"dive"`
}

// HorizonConfig scales probabilities toward a closing window by stage
type HorizonConfig struct {
	Enabled     bool                     `json:"enabled" yaml:"enabled"`
	Multipliers map[models.Stage]float64 `json:"multipliers" yaml:"multipliers" validate:"dive,gt=0"`
	Default     float64                  `json:"default" yaml:"default" validate:"gt=0"`
}

// TerminalConfig selects the closed-lead policy. Synonyms are extra raw stage
// labels that count as closed besides the closed_won stage.
type TerminalConfig struct {
	Policy   TerminalPolicy `json:"policy" yaml:"policy" validate:"oneof=exclude certain"`
	Synonyms []string       `json:"synonyms" yaml:"synonyms"`
}

// AnalysisGate zeroes Analysis leads that lack strong engagement
type AnalysisGate struct {
	Enabled                bool `json:"enabled" yaml:"enabled"`
	MinInteractions        int  `json:"min_interactions" yaml:"min_interactions" validate:"gte=0"`
	MessageMinInteractions int  `json:"message_min_interactions" yaml:"message_min_interactions" validate:"gte=0"`
}

// Calibration is the full parameter set of the scoring engine. Every dashboard
// variant is one Calibration evaluated by the same engine.
type Calibration struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	Ceiling          float64                  `json:"ceiling" yaml:"ceiling" validate:"gt=0,lte=1"`
	InteractionTiers []InteractionTier        `json:"interaction_tiers" yaml:"interaction_tiers" validate:"dive"`
	Channels         ChannelTable             `json:"channels" yaml:"channels"`
	Stages           map[models.Stage]float64 `json:"stages" yaml:"stages" validate:"dive,gte=0,lte=1"`
	Budget           BudgetBand               `json:"budget" yaml:"budget"`
	Contact          ContactBonuses           `json:"contact" yaml:"contact"`

	Decay        DecayConfig    `json:"decay" yaml:"decay"`
	Horizon      HorizonConfig  `json:"horizon" yaml:"horizon"`
	Terminal     TerminalConfig `json:"terminal" yaml:"terminal"`
	AnalysisGate AnalysisGate   `json:"analysis_gate" yaml:"analysis_gate"`

	Multiplier        float64 `json:"multiplier" yaml:"multiplier" validate:"gte=0"`
	HistoricalCeiling float64 `json:"historical_ceiling" yaml:"historical_ceiling" validate:"gte=0"`
}

// Clone returns a deep copy so callers can adjust a calibration without
// touching a shared one
func (c *Calibration) Clone() *Calibration {
	out := *c
	out.InteractionTiers = append([]InteractionTier(nil), c.InteractionTiers...)
	out.Channels.Bonuses = cloneMap(c.Channels.Bonuses)
	out.Stages = cloneMap(c.Stages)
	out.Decay.HalfLifeDays = cloneMap(c.Decay.HalfLifeDays)
	out.Decay.StepDowns = append([]StepDown(nil), c.Decay.StepDowns...)
	out.Horizon.Multipliers = cloneMap(c.Horizon.Multipliers)
	out.Terminal.Synonyms = append([]string(nil), c.Terminal.Synonyms...)
	return &out
}

func cloneMap[K comparable](m map[K]float64) map[K]float64 {
	if m == nil {
		return nil
	}
	out := make(map[K]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate checks field ranges and the cross-field rules: interaction tiers
// and step-downs ascend, and horizon multipliers grow with the stage.
func (c *Calibration) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		return fmt.Errorf("calibration %q: %w", c.ID, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return fmt.Errorf("calibration %q: %s", c.ID, strings.Join(problems, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(calibrationStructLevel, Calibration{})
	return v
}

func calibrationStructLevel(sl validator.StructLevel) {
	cal := sl.Current().Interface().(Calibration)

	for i := 1; i < len(cal.InteractionTiers); i++ {
		if cal.InteractionTiers[i].Min <= cal.InteractionTiers[i-1].Min {
			sl.ReportError(cal.InteractionTiers, "InteractionTiers", "InteractionTiers", "ascending", "")
			break
		}
	}

	for i := 1; i < len(cal.Decay.StepDowns); i++ {
		if cal.Decay.StepDowns[i].OverdueDays <= cal.Decay.StepDowns[i-1].OverdueDays {
			sl.ReportError(cal.Decay.StepDowns, "StepDowns", "StepDowns", "ascending", "")
			break
		}
	}

	for stage := range cal.Stages {
		if !knownStage(stage) {
			sl.ReportError(cal.Stages, "Stages", "Stages", "known_stage", string(stage))
		}
	}
	for stage := range cal.Decay.HalfLifeDays {
		if !knownStage(stage) {
			sl.ReportError(cal.Decay.HalfLifeDays, "HalfLifeDays", "HalfLifeDays", "known_stage", string(stage))
		}
	}
	for stage := range cal.Horizon.Multipliers {
		if !knownStage(stage) {
			sl.ReportError(cal.Horizon.Multipliers, "Multipliers", "Multipliers", "known_stage", string(stage))
		}
	}

	if cal.Horizon.Enabled {
		m := cal.Horizon.Multipliers
		analysis, okA := m[models.StageAnalysis]
		design, okD := m[models.StageDesign]
		negotiation, okN := m[models.StageNegotiation]
		if !okA || !okD || !okN || !(analysis < design && design < negotiation) {
			sl.ReportError(cal.Horizon.Multipliers, "Multipliers", "Multipliers", "stage_increasing", "")
		}
	}
}

func knownStage(stage models.Stage) bool {
	for _, s := range models.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = fieldErrs
	}
	return ok
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Calibration.")
	switch fe.Tag() {
	case "ascending":
		return field + " must be strictly ascending"
	case "stage_increasing":
		return field + " must be set for analysis, design and negotiation and strictly increase in that order"
	case "known_stage":
		return fmt.Sprintf("%s has unknown stage key %q", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "required":
		return field + " is required"
	case "gtefield":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s must satisfy %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// channelBonus looks the channel up with folded keys
func (c *Calibration) channelBonus(channel string) (float64, bool) {
	key := normalizer.Fold(channel)
	if key == "" {
		return c.Channels.Default, false
	}
	// deterministic if two configured keys fold to the same value
	keys := make([]string, 0, len(c.Channels.Bonuses))
	for k := range c.Channels.Bonuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if normalizer.Fold(k) == key {
			return c.Channels.Bonuses[k], true
		}
	}
	return c.Channels.Default, false
}

// isTerminal reports whether a lead already closed
func (c *Calibration) isTerminal(lead models.Lead) bool {
	if lead.Stage == models.StageClosedWon {
		return true
	}
	raw := normalizer.Fold(lead.RawStage)
	if raw == "" {
		return false
	}
	for _, synonym := range c.Terminal.Synonyms {
		if normalizer.Fold(synonym) == raw {
			return true
		}
	}
	return false
}
