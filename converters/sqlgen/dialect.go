// Package sqlgen renders canonical table definitions into dialect-specific DDL and DML.
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/darianmavgo/tabconv/model"
)

// Dialect describes how one SQL engine spells identifiers, types and literals.
type Dialect struct {
	Name string
	// SurrogateKey is the column clause prepended to tables without an "id" column.
	SurrogateKey string
	// Types maps every canonical type to the engine's column type.
	Types map[model.ColumnType]string
	// QuoteIdent quotes a column or index name.
	QuoteIdent func(string) string
	// CreateTableName and InsertTableName spell the table name in CREATE and INSERT.
	CreateTableName func(string) string
	InsertTableName func(string) string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder func(int) string
	// DateLayout is the time layout of date literals.
	DateLayout string
}

func quoteWith(q string) func(string) string {
	return func(s string) string {
		return q + strings.ReplaceAll(s, q, q+q) + q
	}
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// bareOrQuoted leaves plain, non-keyword identifiers as they are and quotes the rest.
func bareOrQuoted(q string) func(string) string {
	quote := quoteWith(q)
	return func(s string) string {
		if plainIdent.MatchString(s) && !IsKeyword(s) {
			return s
		}
		return quote(s)
	}
}

func question(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// SQLite targets embedded engines with weak column typing; DECIMAL_NUMBER maps to REAL.
var SQLite = Dialect{
	Name:         "sqlite",
	SurrogateKey: "id INTEGER PRIMARY KEY AUTOINCREMENT",
	Types: map[model.ColumnType]string{
		model.String:        "TEXT",
		model.IntegerNumber: "INTEGER",
		model.DecimalNumber: "REAL",
		model.Date:          "DATE",
	},
	QuoteIdent:      quoteWith(`"`),
	CreateTableName: bareOrQuoted(`"`),
	InsertTableName: quoteWith(`'`),
	Placeholder:     question,
	DateLayout:      model.DateLayout,
}

var MySQL = Dialect{
	Name:         "mysql",
	SurrogateKey: "id INTEGER PRIMARY KEY AUTO_INCREMENT",
	Types: map[model.ColumnType]string{
		model.String:        "TEXT",
		model.IntegerNumber: "BIGINT",
		model.DecimalNumber: "DOUBLE",
		model.Date:          "DATETIME(3)",
	},
	QuoteIdent:      quoteWith("`"),
	CreateTableName: quoteWith("`"),
	InsertTableName: quoteWith("`"),
	Placeholder:     question,
	DateLayout:      model.DateLayout,
}

var PostgreSQL = Dialect{
	Name:         "postgresql",
	SurrogateKey: "id SERIAL PRIMARY KEY",
	Types: map[model.ColumnType]string{
		model.String:        "TEXT",
		model.IntegerNumber: "BIGINT",
		model.DecimalNumber: "DOUBLE PRECISION",
		model.Date:          "TIMESTAMP",
	},
	QuoteIdent:      quoteWith(`"`),
	CreateTableName: quoteWith(`"`),
	InsertTableName: quoteWith(`"`),
	Placeholder:     dollar,
	DateLayout:      model.DateLayout,
}

var dialects = map[string]Dialect{
	"sqlite":     SQLite,
	"mysql":      MySQL,
	"postgresql": PostgreSQL,
	"postgres":   PostgreSQL,
}

// Lookup returns the dialect registered under name, ignoring case.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// WithDecimalType returns a copy of d mapping DECIMAL_NUMBER to typ.
// An empty typ returns d unchanged.
func (d Dialect) WithDecimalType(typ string) Dialect {
	if typ == "" {
		return d
	}
	types := make(map[model.ColumnType]string, len(d.Types))
	for k, v := range d.Types {
		types[k] = v
	}
	types[model.DecimalNumber] = typ
	d.Types = types
	return d
}

// TypeOf returns the SQL type for a canonical type. An unmapped type is a programming error.
func (d Dialect) TypeOf(t model.ColumnType) string {
	name, ok := d.Types[t]
	if !ok {
		panic(fmt.Sprintf("sqlgen: dialect %s has no SQL type for %s", d.Name, t))
	}
	return name
}
