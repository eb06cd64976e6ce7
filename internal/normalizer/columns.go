package normalizer

import "github.com/ajharbinger/lead-funnel/internal/models"

// Field is a canonical lead attribute
type Field string

const (
	FieldName             Field = "name"
	FieldBudget           Field = "budget"
	FieldInteractionCount Field = "interaction_count"
	FieldChannel          Field = "channel"
	FieldStage            Field = "stage"
	FieldRepliedEmail     Field = "replied_email"
	FieldRepliedMessage   Field = "replied_message"
	FieldRepliedCall      Field = "replied_call"
	FieldOwner            Field = "owner"
	FieldCreatedAt        Field = "created_at"
)

// requiredFields are needed by every run, in reporting order
var requiredFields = []Field{FieldName, FieldBudget, FieldInteractionCount, FieldChannel, FieldStage}

// ColumnMap lists, per field, the column headers that may carry it
type ColumnMap map[Field][]string

// DefaultColumns accepts the canonical snake_case keys, English headers and
// the Spanish headers of the funnel spreadsheet.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		FieldName:             {"name", "lead", "lead name", "Nombre del lead", "nombre"},
		FieldBudget:           {"budget", "Presupuesto"},
		FieldInteractionCount: {"interaction_count", "interactions", "Número de interacciones", "interacciones"},
		FieldChannel:          {"channel", "source", "Canal"},
		FieldStage:            {"stage", "status", "Estatus", "etapa"},
		FieldRepliedEmail:     {"replied_email", "Contestó correo"},
		FieldRepliedMessage:   {"replied_message", "Contestó mensaje"},
		FieldRepliedCall:      {"replied_call", "Contestó llamada"},
		FieldOwner:            {"owner", "Responsable", "vendedor", "asesor"},
		FieldCreatedAt:        {"created_at", "creation date", "Fecha de creación", "fecha"},
	}
}

// DefaultStageAliases maps folded stage labels to the closed stage set
func DefaultStageAliases() map[string]models.Stage {
	return map[string]models.Stage{
		"analysis":       models.StageAnalysis,
		"analisis":       models.StageAnalysis,
		"design":         models.StageDesign,
		"diseno":         models.StageDesign,
		"negotiation":    models.StageNegotiation,
		"negociacion":    models.StageNegotiation,
		"closed won":     models.StageClosedWon,
		"won":            models.StageClosedWon,
		"cerrado ganado": models.StageClosedWon,
		"ganado":         models.StageClosedWon,
	}
}
