package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stage is a lead's position in the sales pipeline
type Stage string

// Pipeline stages. Anything the normalizer cannot place becomes StageUnknown.
const (
	StageAnalysis    Stage = "analysis"
	StageDesign      Stage = "design"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageUnknown     Stage = "unknown"
)

// Stages lists the recognized stages in pipeline order
var Stages = []Stage{StageAnalysis, StageDesign, StageNegotiation, StageClosedWon}

// ParseStage maps a canonical stage key to a Stage
func ParseStage(s string) Stage {
	switch Stage(strings.ToLower(strings.TrimSpace(s))) {
	case StageAnalysis:
		return StageAnalysis
	case StageDesign:
		return StageDesign
	case StageNegotiation:
		return StageNegotiation
	case StageClosedWon:
		return StageClosedWon
	default:
		return StageUnknown
	}
}

// UnmarshalText lets stages be used as YAML/JSON map keys and values
func (s *Stage) UnmarshalText(text []byte) error {
	stage := ParseStage(string(text))
	if stage == StageUnknown && strings.ToLower(strings.TrimSpace(string(text))) != string(StageUnknown) {
		return fmt.Errorf("unknown stage %q", string(text))
	}
	*s = stage
	return nil
}

// Lead represents one normalized sales opportunity
type Lead struct {
	Row               int        `json:"row"`
	Name              string     `json:"name"`
	Owner             string     `json:"owner"`
	Budget            float64    `json:"budget"`
	InteractionCount  int        `json:"interaction_count"`
	Channel           string     `json:"channel"`
	Stage             Stage      `json:"stage"`
	RawStage          string     `json:"raw_stage"`
	RepliedEmail      bool       `json:"replied_email"`
	RepliedMessage    bool       `json:"replied_message"`
	RepliedCall       bool       `json:"replied_call"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	DaysSinceCreation *int       `json:"days_since_creation,omitempty"`
}

// AnyReply reports whether the lead answered on at least one channel
func (l Lead) AnyReply() bool {
	return l.RepliedEmail || l.RepliedMessage || l.RepliedCall
}

// AgeKnown reports whether the lead has a usable elapsed age
func (l Lead) AgeKnown() bool {
	return l.DaysSinceCreation != nil
}

// Gate identifies which gate, if any, forced a lead's probability
type Gate string

const (
	GateNone         Gate = ""
	GateAdmission    Gate = "admission"
	GateAnalysis     Gate = "analysis_secondary"
	GateTerminal     Gate = "terminal"
	GateTerminalDrop Gate = "terminal_excluded"
)

// ScoreDetail provides detailed information about a scoring component
type ScoreDetail struct {
	Value       float64 `json:"value"`
	Triggered   bool    `json:"triggered"`
	Description string  `json:"description"`
}

// ScoredLead is a Lead plus the outcome of one evaluation run
type ScoredLead struct {
	Lead
	BaseProbability  float64                `json:"base_probability"`
	FinalProbability float64                `json:"final_probability"`
	ExpectedValue    float64                `json:"expected_value"`
	DecayFactor      float64                `json:"decay_factor"`
	HorizonFactor    float64                `json:"horizon_factor"`
	Gate             Gate                   `json:"gate,omitempty"`
	Breakdown        map[string]ScoreDetail `json:"breakdown"`
}

// Excluded reports whether the terminal policy removed this lead from the funnel
func (s ScoredLead) Excluded() bool {
	return s.Gate == GateTerminalDrop
}

// OwnerTotal is the expected value accumulated by one owner
type OwnerTotal struct {
	Owner string  `json:"owner"`
	Total float64 `json:"total"`
	Leads int     `json:"leads"`
}

// FunnelSummary aggregates a complete set of scored leads
type FunnelSummary struct {
	Owners           []OwnerTotal `json:"owners"`
	Total            float64      `json:"total"`
	LeadCount        int          `json:"lead_count"`
	StaleCount       int          `json:"stale_count"`
	ExcludedTerminal int          `json:"excluded_terminal"`
	Ceiling          float64      `json:"ceiling"`
	Overflow         bool         `json:"overflow"`
}

// MarshalJSON keeps an empty owner list as [] rather than null
func (f FunnelSummary) MarshalJSON() ([]byte, error) {
	type alias FunnelSummary
	if f.Owners == nil {
		f.Owners = []OwnerTotal{}
	}
	return json.Marshal(alias(f))
}
