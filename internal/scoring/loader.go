package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a calibration file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension; YAML unless .json
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadCalibrationFile reads and validates the calibration at path
func LoadCalibrationFile(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calibration: read %q: %w", path, err)
	}
	cal, err := ParseCalibration(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("calibration: %s: %w", path, err)
	}
	return cal, nil
}

// ParseCalibration decodes a calibration document. Fields the document leaves
// out keep the baseline values; map entries are merged over the baseline's,
// so a channel or stage can be neutralized by setting it to 0.
func ParseCalibration(data []byte, format Format) (*Calibration, error) {
	cal := BaselineCalibration()
	cal.ID = ""
	cal.Name = ""
	cal.Description = ""

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cal); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cal); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported calibration format %q", format)
	}

	if cal.Name == "" {
		cal.Name = cal.ID
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}
