// Package spreadsheet parses uploaded sales report workbooks.
package spreadsheet

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet is one parsed worksheet: the header row plus every data row, each
// padded to the header width so column indexes always land.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Options selects the worksheet. SheetName wins over SheetIndex.
type Options struct {
	SheetIndex int
	SheetName  string
}

// Open parses a workbook from disk.
func Open(path string, opts Options) (*Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet: open file")
	}
	return fromFile(f, opts)
}

// OpenBytes parses a workbook already in memory, the usual path for email
// attachments and uploads.
func OpenBytes(data []byte, opts Options) (*Sheet, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet: open binary")
	}
	return fromFile(f, opts)
}

func fromFile(f *xlsx.File, opts Options) (*Sheet, error) {
	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("spreadsheet: sheet %q is empty", sheet.Name)
	}

	headers := rowToStrings(sheet.Rows[0])
	out := &Sheet{Name: sheet.Name, Headers: headers}

	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
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

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("spreadsheet: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("spreadsheet: sheet index %d out of range", opts.SheetIndex)
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// Column returns the values of one column by index, row-aligned with Rows.
func (s *Sheet) Column(index int) []string {
	if index < 0 || index >= len(s.Headers) {
		return nil
	}
	values := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		values = append(values, row[index])
	}
	return values
}
