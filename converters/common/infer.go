package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// InferType returns the narrowest column type able to hold every non-empty cell:
// INTEGER_NUMBER, then DECIMAL_NUMBER, then DATE, falling back to STRING. A column with
// no values is STRING.
func InferType(cells []string) model.ColumnType {
	integer, decimal, date := true, true, true
	seen := false
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		seen = true
		if integer && !isInteger(cell) {
			integer = false
		}
		if decimal && !isDecimal(cell) {
			decimal = false
		}
		if date {
			if _, err := model.ParseDate(cell); err != nil {
				date = false
			}
		}
		if !integer && !decimal && !date {
			return model.String
		}
	}
	switch {
	case !seen:
		return model.String
	case integer:
		return model.IntegerNumber
	case decimal:
		return model.DecimalNumber
	case date:
		return model.Date
	}
	return model.String
}

// leadingZero reports text such as "007" whose zeros would be lost as a number.
func leadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

func isInteger(s string) bool {
	if leadingZero(s) {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isDecimal(s string) bool {
	if leadingZero(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	// reject "NaN", "Inf" and hex floats which ParseFloat accepts
	return f == f && !strings.ContainsAny(s, "xXnNiI")
}

// HeaderNames turns raw header cells into unique column names. With sanitize the
// compliant-name rules apply; otherwise names are trimmed, blanks become "cl<i>" and
// repeats get a numeric suffix.
func HeaderNames(raw []string, sanitize bool) []string {
	if sanitize {
		return sqlgen.ColumnNames(raw)
	}
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("%s%d", sqlgen.ColumnPrefix, i)
		}
		name := h
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s%d", h, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// TextTable builds a table from a header row and text records, inferring each column's
// type over all records. Rows are returned only when includeData is set. Short records
// are padded with empty cells and long ones truncated.
func TextTable(name string, headers []string, records [][]string, includeData bool) (*model.TableDefinition, []model.Row, error) {
	table, err := model.NewTable(name)
	if err != nil {
		return nil, nil, err
	}
	column := make([]string, len(records))
	for i, h := range headers {
		for r, rec := range records {
			column[r] = cell(rec, i)
		}
		if err := table.Append(h, InferType(column)); err != nil {
			return nil, nil, err
		}
	}
	if !includeData {
		return table, nil, nil
	}

	cols := table.Columns()
	rows := make([]model.Row, 0, len(records))
	for r, rec := range records {
		row := make(model.Row, len(cols))
		for _, col := range cols {
			v, err := TextValue(col.Type, cell(rec, col.Index))
			if err != nil {
				return nil, nil, fmt.Errorf("table %s row %d column %s: %w", name, r+1, col.Name, err)
			}
			row[col.Name] = v
		}
		rows = append(rows, row)
	}
	return table, rows, nil
}

// TextValue converts a text cell into the canonical value for typ. Empty cells of
// non-text columns are nil.
func TextValue(typ model.ColumnType, s string) (any, error) {
	if typ == model.String {
		return s, nil
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return model.Coerce(typ, s)
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// FormatValue renders a canonical value as text. nil is the empty string and dates use
// layout, or model.DateLayout when layout is empty.
func FormatValue(v any, layout string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if layout == "" {
			layout = model.DateLayout
		}
		return x.Format(layout)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
