// Package model holds the format-independent description of tabular data that every
// converter produces or consumes: column types, column/table/index definitions and the
// metadata envelope carrying optional row data.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedMapping is returned when a native type or value has no ColumnType.
var ErrUnsupportedMapping = errors.New("unsupported type mapping")

// ColumnType is the canonical column type every format-specific type system maps onto.
type ColumnType int

const (
	String ColumnType = iota + 1
	Date
	IntegerNumber
	DecimalNumber
)

var columnTypeNames = map[ColumnType]string{
	String:        "STRING",
	Date:          "DATE",
	IntegerNumber: "INTEGER_NUMBER",
	DecimalNumber: "DECIMAL_NUMBER",
}

// ColumnTypes lists the canonical types in declaration order.
func ColumnTypes() []ColumnType {
	return []ColumnType{String, Date, IntegerNumber, DecimalNumber}
}

// String returns the canonical name of the type (e.g. "INTEGER_NUMBER").
func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Valid reports whether t is one of the declared types.
func (t ColumnType) Valid() bool {
	_, ok := columnTypeNames[t]
	return ok
}

// ParseColumnType parses a canonical type name, ignoring case.
func ParseColumnType(s string) (ColumnType, error) {
	for t, name := range columnTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: column type %q", ErrUnsupportedMapping, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMapping, t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
