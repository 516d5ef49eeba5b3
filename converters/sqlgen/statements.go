package sqlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/darianmavgo/tabconv/model"
)

// SurrogateColumn is the name of the implicit primary key column.
const SurrogateColumn = "id"

// ColumnName rewrites a canonical column name into a safe SQL identifier body.
func ColumnName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// CheckColumns reports columns of t whose SQL identifiers collide once rewritten, such
// as "a.b" and "a_b". Engines compare column names case-insensitively, so "A" and "a"
// collide as well.
func CheckColumns(t *model.TableDefinition) error {
	seen := make(map[string]string, t.Len())
	for _, col := range t.Columns() {
		key := strings.ToLower(ColumnName(col.Name))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: table %s: columns %q and %q both map to %q",
				model.ErrInvalidMetadata, t.Name, prev, col.Name, ColumnName(col.Name))
		}
		seen[key] = col.Name
	}
	return nil
}

// persisted reports whether a column is written by INSERT. Columns ending in ".id"
// are join artifacts and are skipped.
func persisted(col model.ColumnDefinition) bool {
	return !strings.HasSuffix(col.Name, ".id")
}

// CreateTable renders t with the default SQLite dialect.
func CreateTable(t *model.TableDefinition) string {
	return SQLite.CreateTable(t)
}

// Insert renders a literal INSERT of row into t with the default SQLite dialect.
func Insert(t *model.TableDefinition, row model.Row) string {
	return SQLite.Insert(t, row)
}

// CreateIndex renders ix with the default SQLite dialect.
func CreateIndex(ix model.IndexDefinition) string {
	return SQLite.CreateIndex(ix)
}

// CreateTable renders a CREATE TABLE statement. A surrogate "id" key is prepended
// unless t already declares an "id" column.
func (d Dialect) CreateTable(t *model.TableDefinition) string {
	cols := t.Columns()
	var b strings.Builder
	b.Grow(len(t.Name) + len(cols)*24)

	b.WriteString("CREATE TABLE ")
	b.WriteString(d.CreateTableName(t.Name))
	b.WriteString(" (")
	first := true
	if !t.HasColumn(SurrogateColumn) {
		b.WriteString(d.SurrogateKey)
		first = false
	}
	for _, col := range cols {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(d.QuoteIdent(ColumnName(col.Name)))
		b.WriteByte(' ')
		b.WriteString(d.TypeOf(col.Type))
	}
	b.WriteString(");")
	return b.String()
}

// CreateIndex renders a CREATE INDEX statement.
func (d Dialect) CreateIndex(ix model.IndexDefinition) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(d.QuoteIdent(ix.Name))
	b.WriteString(" ON ")
	b.WriteString(d.CreateTableName(ix.Table))
	b.WriteString(" (")
	for i, c := range ix.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(d.QuoteIdent(ColumnName(c)))
	}
	b.WriteString(");")
	return b.String()
}

// Insert renders a literal INSERT statement for one row. Values are taken in ordinal
// order; missing values become NULL.
func (d Dialect) Insert(t *model.TableDefinition, row model.Row) string {
	var names, values []string
	for _, col := range t.Columns() {
		if !persisted(col) {
			continue
		}
		names = append(names, d.QuoteIdent(ColumnName(col.Name)))
		values = append(values, d.Literal(row[col.Name]))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		d.InsertTableName(t.Name), strings.Join(names, ","), strings.Join(values, ","))
}

// InsertTemplate renders a parameterised INSERT for t and returns the canonical column
// names in bind order.
func (d Dialect) InsertTemplate(t *model.TableDefinition) (string, []string) {
	var names, marks, fields []string
	for _, col := range t.Columns() {
		if !persisted(col) {
			continue
		}
		fields = append(fields, col.Name)
		names = append(names, d.QuoteIdent(ColumnName(col.Name)))
		marks = append(marks, d.Placeholder(len(marks)+1))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.CreateTableName(t.Name), strings.Join(names, ","), strings.Join(marks, ","))
	return stmt, fields
}

// Values returns the bind arguments of row in the order given by fields.
func Values(fields []string, row model.Row) []any {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = row[f]
	}
	return args
}

// Literal renders a canonical value as an SQL literal.
func (d Dialect) Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(x)
	case time.Time:
		return quoteString(x.Format(d.DateLayout))
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NULL"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return quoteString(fmt.Sprintf("%v", v))
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
