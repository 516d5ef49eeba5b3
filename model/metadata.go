package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidMetadata marks an envelope that violates the table/data pairing invariant.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Row maps column names to canonical values: string, time.Time, int64, float64 or nil.
type Row map[string]any

// Metadata is the envelope passed from a reader to a writer.
type Metadata struct {
	HasData bool
	Tables  map[string]*TableDefinition
	Data    map[string][]Row
}

// New returns an empty envelope.
func New(hasData bool) *Metadata {
	return &Metadata{
		HasData: hasData,
		Tables:  make(map[string]*TableDefinition),
		Data:    make(map[string][]Row),
	}
}

// AddTable registers a table definition. When the envelope carries data an empty row
// sequence is created for it so that the pairing invariant holds.
func (m *Metadata) AddTable(t *TableDefinition) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidDefinition)
	}
	if _, dup := m.Tables[t.Name]; dup {
		return fmt.Errorf("%w: duplicate table %s", ErrInvalidDefinition, t.Name)
	}
	m.Tables[t.Name] = t
	if m.HasData {
		if _, ok := m.Data[t.Name]; !ok {
			m.Data[t.Name] = []Row{}
		}
	}
	return nil
}

// AddRow appends a row to a table's data.
func (m *Metadata) AddRow(table string, row Row) {
	m.Data[table] = append(m.Data[table], row)
}

// TableNames returns the table names in sorted order.
func (m *Metadata) TableNames() []string {
	names := make([]string, 0, len(m.Tables))
	for name := range m.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the envelope before writing: definitions must be present and, when
// HasData is set, every defined table must have a row sequence and vice versa.
func (m *Metadata) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil envelope", ErrInvalidMetadata)
	}
	if m.Tables == nil {
		return fmt.Errorf("%w: no table definitions", ErrInvalidMetadata)
	}
	for name, t := range m.Tables {
		if t == nil {
			return fmt.Errorf("%w: table %s has no definition", ErrInvalidMetadata, name)
		}
	}
	if !m.HasData {
		return nil
	}
	for name := range m.Tables {
		if _, ok := m.Data[name]; !ok {
			return fmt.Errorf("%w: table %s has no row data", ErrInvalidMetadata, name)
		}
	}
	for name := range m.Data {
		if _, ok := m.Tables[name]; !ok {
			return fmt.Errorf("%w: row data for undefined table %s", ErrInvalidMetadata, name)
		}
	}
	return nil
}

// RowCount returns the total number of rows over all tables.
func (m *Metadata) RowCount() int {
	n := 0
	for _, rows := range m.Data {
		n += len(rows)
	}
	return n
}
