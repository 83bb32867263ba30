package tabular

// Table is a rectangular result with a header row. Rows shorter than Columns
// are padded with empty cells when rendered.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Cell returns the value at (row, col) or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Project returns a new table holding only the named columns, in the given
// order. Columns absent from t come out empty.
func (t *Table) Project(columns ...string) *Table {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
	}

	out := NewTable(columns...)
	for r := range t.Rows {
		row := make([]string, len(columns))
		for i, j := range idx {
			if j >= 0 {
				row[i] = t.Cell(r, j)
			}
		}
		out.AddRow(row...)
	}
	return out
}

// Set is an ordered collection of named tables.
type Set struct {
	names  []string
	tables map[string]*Table
}

func NewSet() *Set {
	return &Set{tables: make(map[string]*Table)}
}

// Put stores t under name. Replacing an existing name keeps its position.
func (s *Set) Put(name string, t *Table) {
	if _, ok := s.tables[name]; !ok {
		s.names = append(s.names, name)
	}
	s.tables[name] = t
}

func (s *Set) Get(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Each visits tables in insertion order.
func (s *Set) Each(fn func(name string, t *Table)) {
	if s == nil {
		return
	}
	for _, name := range s.names {
		fn(name, s.tables[name])
	}
}
