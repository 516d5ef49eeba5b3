// Package postgres reads and writes PostgreSQL databases through pgx's database/sql
// driver. Tables are read from and written to the connection's current schema.
package postgres

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/dbsql"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

var Flavor = dbsql.Flavor{
	Format:  converters.FormatPostgreSQL,
	Driver:  DriverName,
	Dialect: sqlgen.PostgreSQL,
	Catalog: dbsql.Catalog{
		Tables: `SELECT table_name::text AS name
			FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		Columns: `SELECT c.column_name::text AS name, c.data_type::text AS type,
				EXISTS (
					SELECT 1 FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage k
						ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
					WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name
					AND k.column_name = c.column_name
				) AS pk
			FROM information_schema.columns c
			WHERE c.table_schema = current_schema() AND c.table_name = $1
			ORDER BY c.ordinal_position`,
		Indexes: `SELECT i.relname::text, ix.indisunique, a.attname::text
			FROM pg_class t
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_index ix ON ix.indrelid = t.oid
			JOIN pg_class i ON i.oid = ix.indexrelid
			JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
			WHERE n.nspname = current_schema() AND t.relname = $1 AND NOT ix.indisprimary
			ORDER BY i.relname, k.ord`,
		ColumnType: ColumnType,
	},
	DSN: DSN,
}

// Module registers the PostgreSQL reader and writer.
var Module = converters.Module{Namespace: "converters/postgres", Register: func(r *converters.Registry) {
	for _, kind := range []converters.Kind{converters.KindDatabase, converters.KindConnection} {
		r.RegisterReader(converters.FormatPostgreSQL, kind, "postgres.Reader",
			func() converters.Reader { return dbsql.NewReader(Flavor) })
		r.RegisterWriter(converters.FormatPostgreSQL, kind, "postgres.Writer",
			func() converters.Writer { return dbsql.NewWriter(Flavor) })
	}
}}

// DSN accepts a pgx connection string, URL or key/value, or the "//host:5432/db" form
// left over from a jdbc qualifier.
func DSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "//") {
		dsn = "postgres:" + dsn
	}
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	return dsn, nil
}

// ColumnType maps an information_schema data type. Boolean, binary and interval types
// have no canonical type.
func ColumnType(declared string) (model.ColumnType, error) {
	t := strings.ToLower(strings.TrimSpace(declared))
	switch {
	case t == "smallint", t == "integer", t == "bigint":
		return model.IntegerNumber, nil
	case t == "numeric", t == "real", t == "double precision":
		return model.DecimalNumber, nil
	case t == "date", strings.HasPrefix(t, "timestamp"):
		return model.Date, nil
	case t == "text", t == "uuid", t == "json", t == "jsonb", t == "xml",
		strings.HasPrefix(t, "character"), strings.HasPrefix(t, "time "), t == "time":
		return model.String, nil
	}
	return 0, fmt.Errorf("%w: PostgreSQL type %s", model.ErrUnsupportedMapping, declared)
}
