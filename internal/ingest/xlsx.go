package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ajharbinger/lead-funnel/internal/normalizer"
)

// ErrUnsupportedFormat is returned by Read for files that are neither CSV nor XLSX
var ErrUnsupportedFormat = errors.New("file must be a .csv or .xlsx spreadsheet")

// Read picks the reader from the file name's extension
func Read(filename string, r io.Reader) ([]normalizer.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ReadXLSX reads the first sheet of a workbook, using its first row as the
// header. Cells are read as displayed, except date cells which become
// "2006-01-02" (or "2006-01-02 15:04:05" when they carry a time).
func ReadXLSX(r io.Reader) ([]normalizer.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	header := rows[0]
	trimHeader(header)

	var records []normalizer.RawRecord
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		for col := range row {
			if i+1 >= len(raw) || col >= len(raw[i+1]) {
				continue
			}
			if date, ok := dateCell(f, sheet, col+1, i+2, raw[i+1][col]); ok {
				row[col] = date
			}
		}
		records = append(records, newRecord(header, row))
	}
	return records, nil
}

// dateCell converts the serial value of a cell styled as a date
func dateCell(f *excelize.File, sheet string, col, row int, value string) (string, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "", false
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return "", false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || !isDateFormat(style) {
		return "", false
	}

	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02"), true
	}
	return t.Format("2006-01-02 15:04:05"), true
}

// quoted literals and [..] sections such as colors or locales
var numFmtNoise = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`)

func isDateFormat(style *excelize.Style) bool {
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 17, style.NumFmt == 22:
		return true
	case style.CustomNumFmt != nil:
		format := strings.ToLower(numFmtNoise.ReplaceAllString(*style.CustomNumFmt, ""))
		return strings.ContainsAny(format, "dy")
	default:
		return false
	}
}
