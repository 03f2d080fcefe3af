package decode

import "fmt"

// TableRow is one data row of a keyword-matched table, addressed by
// semantic slot instead of column index.
type TableRow struct {
	Line  int
	cells map[string]string
}

// Get returns the cleaned cell for a slot, or "" when the slot's column
// is absent.
func (r TableRow) Get(slot string) string {
	return r.cells[slot]
}

// Table is the result of ParseTable.
type Table struct {
	Columns   map[string]int
	Rows      []TableRow
	RowErrors []RowError
}

// ParseTable parses CSV content whose columns are located by matcher
// tables rather than fixed positions. Missing any required slot is a
// hard SchemaError; a row with an empty required cell is a RowError.
func ParseTable(content string, matchers []ColumnMatcher, required []string) (*Table, error) {
	records, err := parseCSV(content)
	if err != nil {
		return nil, &DecodeError{Msg: "malformed CSV", Err: err}
	}
	if len(records) == 0 {
		return nil, &DecodeError{Msg: "empty file"}
	}

	cols := ResolveColumns(records[0], matchers)
	var missing []string
	for _, slot := range required {
		if _, ok := cols[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	t := &Table{Columns: cols}
rows:
	for i, row := range records[1:] {
		line := i + 2
		if isEmptyRow(row) {
			continue
		}

		cells := make(map[string]string, len(cols))
		for slot, idx := range cols {
			cells[slot] = cleanCell(cell(row, idx))
		}
		for _, slot := range required {
			if isPlaceholder(cells[slot]) {
				t.RowErrors = append(t.RowErrors, RowError{
					Line: line,
					Msg:  fmt.Sprintf("empty required column %q", slot),
				})
				continue rows
			}
		}
		t.Rows = append(t.Rows, TableRow{Line: line, cells: cells})
	}

	return t, nil
}
