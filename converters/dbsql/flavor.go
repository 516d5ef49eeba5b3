// Package dbsql implements the reader and writer shared by the relational database
// converters. A Flavor supplies the driver, the SQL dialect and the catalog queries of
// one engine; the SQLite, MySQL and PostgreSQL packages each declare one.
package dbsql

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Column is one row of a catalog column query.
type Column struct {
	Name       string `db:"name"`
	Type       string `db:"type"`
	PrimaryKey bool   `db:"pk"`
}

// Catalog holds the system-table queries of an engine.
type Catalog struct {
	// Tables returns the user table names as "name", sorted. It takes no arguments.
	Tables string
	// Columns returns Column rows for the table bound to the single parameter,
	// in ordinal order.
	Columns string
	// Indexes returns (name, is_unique, column) rows for the table bound to the
	// single parameter, ordered by index name then column position. Primary keys
	// are excluded.
	Indexes string
	// ColumnType maps a declared type to a canonical type.
	ColumnType func(declared string) (model.ColumnType, error)
}

// Flavor describes one database engine.
type Flavor struct {
	Format converters.Format
	// Driver is the database/sql driver name.
	Driver  string
	Dialect sqlgen.Dialect
	Catalog Catalog
	// Setup runs on connections the converter opens itself.
	Setup func(ctx context.Context, db *sqlx.DB) error
	// Bind converts a canonical value into a driver argument. Nil means identity.
	Bind func(v any) any
	// FileDSN turns a file path into a DSN. Nil means the engine has no file form.
	FileDSN func(path string) string
	// DSN rewrites a connection string into the driver's form. Nil means identity.
	DSN func(dsn string) (string, error)
}

// Tables returns the user tables of db.
func (f Flavor) Tables(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var names []string
	if err := db.SelectContext(ctx, &names, f.Catalog.Tables); err != nil {
		return nil, fmt.Errorf("failed to list %s tables: %w", f.Format, err)
	}
	return names, nil
}

// Columns returns the columns of table in ordinal order.
func (f Flavor) Columns(ctx context.Context, db *sqlx.DB, table string) ([]Column, error) {
	var cols []Column
	if err := db.SelectContext(ctx, &cols, f.Catalog.Columns, table); err != nil {
		return nil, fmt.Errorf("failed to load columns for table %s: %w", table, err)
	}
	return cols, nil
}

// Indexes returns the secondary indexes of table.
func (f Flavor) Indexes(ctx context.Context, db *sqlx.DB, table string) ([]model.IndexDefinition, error) {
	rows, err := db.QueryContext(ctx, f.Catalog.Indexes, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes for table %s: %w", table, err)
	}
	defer rows.Close()

	var (
		out     []model.IndexDefinition
		current *model.IndexDefinition
	)
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		if current == nil || current.Name != name {
			out = append(out, model.IndexDefinition{Name: name, Table: table, Unique: unique})
			current = &out[len(out)-1]
		}
		current.Columns = append(current.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read indexes for table %s: %w", table, err)
	}
	return out, nil
}

func (f Flavor) bind(v any) any {
	if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
		return nil
	}
	if f.Bind != nil {
		return f.Bind(v)
	}
	return v
}

// DateText binds dates as text in the dialect's date layout. Engines with weak
// column typing store what they are given, so the text form keeps reads stable.
func DateText(layout string) func(any) any {
	return func(v any) any {
		if t, ok := v.(time.Time); ok {
			return t.Format(layout)
		}
		return v
	}
}
