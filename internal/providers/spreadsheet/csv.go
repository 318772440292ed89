package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/rotisserie/eris"
)

// OpenCSVBytes parses a CSV export with the same shape as a worksheet: the
// first row is the header, blank rows are skipped, short rows are padded.
func OpenCSVBytes(data []byte) (*Sheet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet: read csv")
	}
	if len(records) == 0 {
		return nil, eris.New("spreadsheet: csv is empty")
	}

	headers := make([]string, 0, len(records[0]))
	for _, h := range records[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	out := &Sheet{Name: "csv", Headers: headers}
	for _, record := range records[1:] {
		cells := make([]string, 0, len(headers))
		for _, c := range record {
			cells = append(cells, strings.TrimSpace(c))
		}
		if blankRow(cells) {
			continue
		}
		for len(cells) < len(headers) {
			cells = append(cells, "")
		}
		out.Rows = append(out.Rows, cells)
	}

	return out, nil
}
