package glosas

// Sheet is a parsed tabular slice of a supplier workbook: an ordered header
// plus one string map per data row. Column order is preserved so consolidated
// workbooks reproduce the supplier layout.
type Sheet struct {
	Columns []string
	Rows    []map[string]string
}

// HasColumn reports whether the sheet carries the exact column name.
func (s *Sheet) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the header if absent and fills every
// existing row with the given default value.
func (s *Sheet) AddColumn(name, def string) {
	if s.HasColumn(name) {
		return
	}
	s.Columns = append(s.Columns, name)
	for _, row := range s.Rows {
		if _, ok := row[name]; !ok {
			row[name] = def
		}
	}
}

// Append adds the rows and any new columns of other to s, keeping s's
// column order first. Missing cells are left empty.
func (s *Sheet) Append(other *Sheet) {
	for _, c := range other.Columns {
		if !s.HasColumn(c) {
			s.Columns = append(s.Columns, c)
		}
	}
	s.Rows = append(s.Rows, other.Rows...)
}

// CellMatrix renders the sheet as a header row plus data rows, suitable for
// workbook writers.
func (s *Sheet) CellMatrix() [][]any {
	matrix := make([][]any, 0, len(s.Rows)+1)
	header := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c
	}
	matrix = append(matrix, header)
	for _, row := range s.Rows {
		cells := make([]any, len(s.Columns))
		for i, c := range s.Columns {
			cells[i] = row[c]
		}
		matrix = append(matrix, cells)
	}
	return matrix
}
