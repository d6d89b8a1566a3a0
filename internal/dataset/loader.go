package dataset

import (
	"os"
	"strings"

	"datanerd/internal/logging"
)

// Load parses comma-separated, double-quote-escaped text into a Dataset.
//
// The field splitter is a quote-toggle state machine: a double quote
// flips the in-quotes state, a comma inside quotes is literal, and a
// doubled quote inside quotes is a literal quote. This is deliberately
// more lenient than encoding/csv - a stray quote mid-field toggles state
// instead of failing the record, because real-world exports contain them.
//
// Blank lines are skipped entirely. If fewer than two non-blank lines
// remain (no header or no data rows) an empty Dataset is returned rather
// than an error. Wrapper quotes are stripped from headers and fields, and
// rows missing trailing fields get empty strings so every row carries
// exactly the header key set.
func Load(raw string) *Dataset {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) < 2 {
		logging.DatasetDebug("Load: %d non-blank lines, returning empty dataset", len(lines))
		return &Dataset{Headers: []string{}, Rows: []Row{}}
	}

	headers := splitLine(lines[0])
	for i, h := range headers {
		headers[i] = trimWrapperQuotes(h)
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := splitLine(line)
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(fields) {
				row[h] = trimWrapperQuotes(fields[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	logging.Dataset("Loaded dataset: %d rows, %d columns", len(rows), len(headers))
	return &Dataset{Headers: headers, Rows: rows}
}

// LoadFile reads and parses a delimited text file.
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(string(data)), nil
}

// splitLine splits one record on commas, honoring the quote-toggle rule.
// Quote characters that open or close a quoted run are consumed; a
// doubled quote inside a quoted run emits a single literal quote.
func splitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// trimWrapperQuotes strips a leading/trailing quote wrapper left over
// from exports that double-wrap fields.
func trimWrapperQuotes(s string) string {
	return strings.Trim(s, `"`)
}
