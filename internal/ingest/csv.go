package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ajharbinger/lead-funnel/internal/normalizer"
)

// ErrEmptyFile is returned when the input has no header row
var ErrEmptyFile = errors.New("CSV file is empty")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a spreadsheet export into raw records keyed by header.
// The delimiter (comma or semicolon) is detected from the header line.
// Rows with no values are skipped and short rows are padded with blanks.
func ReadCSV(r io.Reader) ([]normalizer.RawRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	firstLine, err := br.Peek(peekSize(br))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(firstLine)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	trimHeader(header)

	var records []normalizer.RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if blank(row) {
			continue
		}
		records = append(records, newRecord(header, row))
	}
	return records, nil
}

func trimHeader(header []string) {
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
}

// newRecord keys row by header. Short rows are padded with blanks and
// duplicate headers keep the first non-empty value.
func newRecord(header, row []string) normalizer.RawRecord {
	record := make(normalizer.RawRecord, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		value := ""
		if i < len(row) {
			value = row[i]
		}
		if existing, ok := record[name]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		record[name] = value
	}
	return record
}

func peekSize(br *bufio.Reader) int {
	if n := br.Buffered(); n > 0 {
		return n
	}
	// force a fill, then use whatever arrived
	_, _ = br.Peek(1)
	return br.Buffered()
}

// detectDelimiter picks ';' when the header line has more semicolons than
// commas, as European spreadsheet exports do
func detectDelimiter(data []byte) rune {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	if bytes.Count(data, []byte{';'}) > bytes.Count(data, []byte{','}) {
		return ';'
	}
	return ','
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
