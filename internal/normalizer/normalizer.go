package normalizer

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ajharbinger/lead-funnel/internal/models"
)

// RawRecord is one input row keyed by column header
type RawRecord map[string]string

// Options configures how raw records are read
type Options struct {
	Columns          ColumnMap
	Vocabulary       Vocabulary
	StageAliases     map[string]models.Stage
	TimestampLayouts []string

	// RequireOwner is set when the caller aggregates by owner
	RequireOwner bool
	// RequireCreatedAt is set when temporal features must have real input
	RequireCreatedAt bool
}

// DefaultOptions returns options for the standard funnel export
func DefaultOptions() Options {
	return Options{
		Columns:          DefaultColumns(),
		Vocabulary:       DefaultVocabulary(),
		StageAliases:     DefaultStageAliases(),
		TimestampLayouts: DefaultTimestampLayouts,
	}
}

// Normalizer converts raw records into Leads
type Normalizer struct {
	opts    Options
	headers map[string]Field
	stages  map[string]models.Stage
	flags   tokenSet
}

// New creates a normalizer. Empty option fields fall back to the defaults.
func New(opts Options) *Normalizer {
	defaults := DefaultOptions()
	if len(opts.Columns) == 0 {
		opts.Columns = defaults.Columns
	}
	if len(opts.Vocabulary.Affirmative) == 0 && len(opts.Vocabulary.Negative) == 0 {
		opts.Vocabulary = defaults.Vocabulary
	}
	if len(opts.StageAliases) == 0 {
		opts.StageAliases = defaults.StageAliases
	}
	if len(opts.TimestampLayouts) == 0 {
		opts.TimestampLayouts = defaults.TimestampLayouts
	}

	n := &Normalizer{
		opts:    opts,
		headers: make(map[string]Field),
		stages:  make(map[string]models.Stage, len(opts.StageAliases)),
		flags:   opts.Vocabulary.compile(),
	}
	for field, aliases := range opts.Columns {
		n.headers[Fold(string(field))] = field
		for _, alias := range aliases {
			n.headers[Fold(alias)] = field
		}
	}
	for alias, stage := range opts.StageAliases {
		n.stages[Fold(alias)] = stage
	}
	return n
}

// Options returns the effective options
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize converts one record. row is the 1-based position used in errors;
// at is the evaluation instant ages are measured against.
func (n *Normalizer) Normalize(record RawRecord, row int, at time.Time) (models.Lead, error) {
	values := n.resolve(record)

	required := requiredFields
	if n.opts.RequireOwner {
		required = append(required[:len(required):len(required)], FieldOwner)
	}
	if n.opts.RequireCreatedAt {
		required = append(required[:len(required):len(required)], FieldCreatedAt)
	}

	var missing []Field
	for _, field := range required {
		if values[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return models.Lead{}, &MissingFieldError{Row: row, Fields: missing}
	}

	budget, ok := parseAmount(values[FieldBudget])
	if !ok {
		return models.Lead{}, &InvalidValueError{Row: row, Field: FieldBudget, Value: values[FieldBudget]}
	}
	interactions, ok := parseCount(values[FieldInteractionCount])
	if !ok {
		return models.Lead{}, &InvalidValueError{Row: row, Field: FieldInteractionCount, Value: values[FieldInteractionCount]}
	}

	lead := models.Lead{
		Row:              row,
		Name:             values[FieldName],
		Owner:            values[FieldOwner],
		Budget:           budget,
		InteractionCount: interactions,
		Channel:          values[FieldChannel],
		RawStage:         values[FieldStage],
		Stage:            n.ParseStage(values[FieldStage]),
		RepliedEmail:     n.flags.parse(values[FieldRepliedEmail]),
		RepliedMessage:   n.flags.parse(values[FieldRepliedMessage]),
		RepliedCall:      n.flags.parse(values[FieldRepliedCall]),
	}

	if created, ok := ParseTimestamp(values[FieldCreatedAt], n.opts.TimestampLayouts, at.Location()); ok {
		lead.CreatedAt = &created
		if days, ok := DaysSince(created, at); ok {
			lead.DaysSinceCreation = &days
		}
	}

	return lead, nil
}

// NormalizeAll converts every record, collecting rejections instead of stopping
func (n *Normalizer) NormalizeAll(records []RawRecord, at time.Time) ([]models.Lead, []Rejection) {
	leads := make([]models.Lead, 0, len(records))
	var rejected []Rejection

	for i, record := range records {
		row := i + 1
		lead, err := n.Normalize(record, row, at)
		if err != nil {
			rejected = append(rejected, Rejection{
				Row:  row,
				Name: n.resolve(record)[FieldName],
				Err:  err,
			})
			continue
		}
		leads = append(leads, lead)
	}
	return leads, rejected
}

// ParseStage places a stage label in the closed set
func (n *Normalizer) ParseStage(label string) models.Stage {
	if stage, ok := n.stages[Fold(label)]; ok {
		return stage
	}
	return models.ParseStage(label)
}

// resolve maps record columns to fields. When several columns carry the same
// field the first non-empty one in sorted header order wins.
func (n *Normalizer) resolve(record RawRecord) map[Field]string {
	headers := make([]string, 0, len(record))
	for header := range record {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	values := make(map[Field]string, len(record))
	for _, header := range headers {
		value := record[header]
		field, ok := n.headers[Fold(header)]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || values[field] != "" {
			continue
		}
		values[field] = value
	}
	return values
}

var (
	// "480.000", "1.250.000": dots grouping thousands, as es-MX exports write them
	dotGrouped = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)
	exponent   = regexp.MustCompile(`\d[eE][+-]?\d`)
)

// parseAmount reads a currency amount such as "$480,000.00", "480000",
// "1.234,50", "1.250.000" or "4.8e5". Negative amounts clamp to zero.
func parseAmount(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if !dotGrouped.MatchString(text) {
		if value, err := strconv.ParseFloat(text, 64); err == nil {
			return finiteAmount(value)
		}
	}
	if exponent.MatchString(text) {
		return parseExponentAmount(text)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, text)
	if cleaned == "" || strings.Trim(cleaned, ".,-") == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastComma > lastDot && lastDot >= 0:
		// "1.234,50"
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastComma >= 0 && lastDot < 0 && strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 <= 2:
		// "480,5"
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastComma < 0 && dotGrouped.MatchString(cleaned):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	default:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finiteAmount(value)
}

// parseExponentAmount accepts "$4.8E+05" once currency text is stripped.
// Separators are kept so "4,8e5" fails rather than reading as 48e5.
func parseExponentAmount(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+', r == 'e', r == 'E':
			return r
		default:
			return -1
		}
	}, text)
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finiteAmount(value)
}

func finiteAmount(value float64) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	if value < 0 {
		value = 0
	}
	return value, true
}

// parseCount reads an interaction count; "4.0" is accepted as 4
func parseCount(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			n = 0
		}
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return int(f), true
}
