package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidDefinition is returned by the constructors for structurally incomplete input.
var ErrInvalidDefinition = errors.New("invalid definition")

// ColumnDefinition describes one column. Two definitions are equal iff name, index and
// type all match, so values compare with ==.
type ColumnDefinition struct {
	Name  string
	Index int
	Type  ColumnType
}

// NewColumn validates and returns a column definition.
func NewColumn(name string, index int, typ ColumnType) (ColumnDefinition, error) {
	if name == "" {
		return ColumnDefinition{}, fmt.Errorf("%w: column name is required", ErrInvalidDefinition)
	}
	if index < 0 {
		return ColumnDefinition{}, fmt.Errorf("%w: column %s has negative index %d", ErrInvalidDefinition, name, index)
	}
	if !typ.Valid() {
		return ColumnDefinition{}, fmt.Errorf("%w: column %s has type %s", ErrInvalidDefinition, name, typ)
	}
	return ColumnDefinition{Name: name, Index: index, Type: typ}, nil
}

// IndexDefinition describes an index over one or more columns of a table.
type IndexDefinition struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// NewIndex validates and returns an index definition.
func NewIndex(name, table string, columns []string, unique bool) (IndexDefinition, error) {
	if name == "" || table == "" {
		return IndexDefinition{}, fmt.Errorf("%w: index and table name are required", ErrInvalidDefinition)
	}
	if len(columns) == 0 {
		return IndexDefinition{}, fmt.Errorf("%w: index %s has no columns", ErrInvalidDefinition, name)
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return IndexDefinition{Name: name, Table: table, Columns: cols, Unique: unique}, nil
}

// IsComposite reports whether more than one column participates.
func (ix IndexDefinition) IsComposite() bool {
	return len(ix.Columns) > 1
}

// TableDefinition is a named, ordered set of columns with optional indexes.
// Column ordinals are always dense: 0..n-1.
type TableDefinition struct {
	Name    string
	columns []ColumnDefinition
	byName  map[string]int
	indexes []IndexDefinition
}

// NewTable builds a table from columns given in any order. The ordinals must form
// the sequence 0..n-1 and the names must be unique.
func NewTable(name string, columns ...ColumnDefinition) (*TableDefinition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrInvalidDefinition)
	}
	sorted := make([]ColumnDefinition, len(columns))
	copy(sorted, columns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	t := &TableDefinition{Name: name, byName: make(map[string]int, len(columns))}
	for _, col := range sorted {
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column. Its index must equal the current column count.
func (t *TableDefinition) AddColumn(col ColumnDefinition) error {
	if _, err := NewColumn(col.Name, col.Index, col.Type); err != nil {
		return err
	}
	if t.byName == nil {
		t.byName = make(map[string]int)
	}
	if _, dup := t.byName[col.Name]; dup {
		return fmt.Errorf("%w: duplicate column %s in table %s", ErrInvalidDefinition, col.Name, t.Name)
	}
	if col.Index != len(t.columns) {
		return fmt.Errorf("%w: column %s of table %s has index %d, want %d",
			ErrInvalidDefinition, col.Name, t.Name, col.Index, len(t.columns))
	}
	t.byName[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// Append adds a column at the next ordinal position.
func (t *TableDefinition) Append(name string, typ ColumnType) error {
	return t.AddColumn(ColumnDefinition{Name: name, Index: len(t.columns), Type: typ})
}

// Columns returns the columns in ordinal order. The slice is a copy.
func (t *TableDefinition) Columns() []ColumnDefinition {
	out := make([]ColumnDefinition, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks a column up by name.
func (t *TableDefinition) Column(name string) (ColumnDefinition, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ColumnDefinition{}, false
	}
	return t.columns[i], true
}

// ColumnAt looks a column up by ordinal.
func (t *TableDefinition) ColumnAt(index int) (ColumnDefinition, bool) {
	if index < 0 || index >= len(t.columns) {
		return ColumnDefinition{}, false
	}
	return t.columns[index], true
}

// HasColumn reports whether a column with the given name exists, ignoring case.
func (t *TableDefinition) HasColumn(name string) bool {
	if _, ok := t.byName[name]; ok {
		return true
	}
	for _, col := range t.columns {
		if strings.EqualFold(col.Name, name) {
			return true
		}
	}
	return false
}

// Len returns the number of columns.
func (t *TableDefinition) Len() int {
	return len(t.columns)
}

// AddIndex attaches an index. Every indexed column must exist in the table.
func (t *TableDefinition) AddIndex(ix IndexDefinition) error {
	if ix.Table != t.Name {
		return fmt.Errorf("%w: index %s belongs to %s, not %s", ErrInvalidDefinition, ix.Name, ix.Table, t.Name)
	}
	for _, c := range ix.Columns {
		if _, ok := t.byName[c]; !ok {
			return fmt.Errorf("%w: index %s references unknown column %s", ErrInvalidDefinition, ix.Name, c)
		}
	}
	t.indexes = append(t.indexes, ix)
	return nil
}

// Indexes returns the attached indexes in insertion order.
func (t *TableDefinition) Indexes() []IndexDefinition {
	out := make([]IndexDefinition, len(t.indexes))
	copy(out, t.indexes)
	return out
}

// Equal reports whether two tables have the same name, columns and indexes.
func (t *TableDefinition) Equal(o *TableDefinition) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Name != o.Name || len(t.columns) != len(o.columns) || len(t.indexes) != len(o.indexes) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for i := range t.indexes {
		a, b := t.indexes[i], o.indexes[i]
		if a.Name != b.Name || a.Table != b.Table || a.Unique != b.Unique || strings.Join(a.Columns, "\x00") != strings.Join(b.Columns, "\x00") {
			return false
		}
	}
	return true
}
