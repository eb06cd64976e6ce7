package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UnmarshalJSON accepts JSON objects whose values are strings, numbers,
// booleans or null, so API clients can send typed values. Every value is
// kept as text and parsed later like a spreadsheet cell.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}

	out := make(RawRecord, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case nil:
			out[key] = ""
		case string:
			out[key] = v
		case json.Number:
			out[key] = v.String()
		case bool:
			out[key] = strconv.FormatBool(v)
		default:
			return fmt.Errorf("field %q: unsupported value %v", key, value)
		}
	}
	*r = out
	return nil
}
