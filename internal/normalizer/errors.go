package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MissingFieldError names every required field absent from a raw record
type MissingFieldError struct {
	Row    int
	Fields []Field
}

func (e *MissingFieldError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("row %d: missing required fields: %s", e.Row, strings.Join(names, ", "))
}

// InvalidValueError reports a numeric field whose text could not be read
type InvalidValueError struct {
	Row   int
	Field Field
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("row %d: invalid %s value %q", e.Row, e.Field, e.Value)
}

// Rejection records why one raw record did not become a Lead
type Rejection struct {
	Row  int
	Name string
	Err  error
}

// MarshalJSON flattens the error for API responses
func (r Rejection) MarshalJSON() ([]byte, error) {
	out := struct {
		Row    int      `json:"row"`
		Name   string   `json:"name,omitempty"`
		Error  string   `json:"error"`
		Fields []string `json:"missing_fields,omitempty"`
	}{Row: r.Row, Name: r.Name}

	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if missing, ok := r.Err.(*MissingFieldError); ok {
		for _, f := range missing.Fields {
			out.Fields = append(out.Fields, string(f))
		}
	}
	return json.Marshal(out)
}
