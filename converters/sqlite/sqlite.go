// Package sqlite reads and writes SQLite databases through the pure Go driver. It
// accepts open handles, connection strings, database files and streams holding a
// database image.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/dbsql"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Flavor is the SQLite engine description.
var Flavor = dbsql.Flavor{
	Format:  converters.FormatSQLite,
	Driver:  DriverName,
	Dialect: sqlgen.SQLite,
	Catalog: dbsql.Catalog{
		Tables: `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		Columns: `SELECT name, type, pk > 0 AS pk
			FROM pragma_table_info(?)
			ORDER BY cid`,
		Indexes: `SELECT il.name, il."unique", ii.name
			FROM pragma_index_list(?) AS il, pragma_index_info(il.name) AS ii
			WHERE il.origin = 'c'
			ORDER BY il.name, ii.seqno`,
		ColumnType: ColumnType,
	},
	Setup:   setup,
	Bind:    dbsql.DateText(sqlgen.SQLite.DateLayout),
	FileDSN: func(path string) string { return path },
}

// Module registers the SQLite reader and writer for every resource kind.
var Module = converters.Module{Namespace: "converters/sqlite", Register: func(r *converters.Registry) {
	for _, kind := range []converters.Kind{
		converters.KindDatabase, converters.KindConnection, converters.KindFile, converters.KindStream,
	} {
		r.RegisterReader(converters.FormatSQLite, kind, "sqlite.Reader",
			func() converters.Reader { return dbsql.NewReader(Flavor) })
		r.RegisterWriter(converters.FormatSQLite, kind, "sqlite.Writer",
			func() converters.Writer { return dbsql.NewWriter(Flavor) })
	}
}}

func setup(ctx context.Context, db *sqlx.DB) error {
	// One connection keeps in-memory databases whole and lets tx.Stmt reuse the
	// prepared statement.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA page_size = 65536; PRAGMA cache_size = -2000;"); err != nil {
		return fmt.Errorf("failed to set PRAGMAs: %w", err)
	}
	return nil
}

// ColumnType maps a declared column type by SQLite's affinity rules. Declarations with
// DATE or TIME, which SQLite treats as NUMERIC, are read as dates. BLOB and boolean
// columns have no canonical type.
func ColumnType(declared string) (model.ColumnType, error) {
	t := strings.ToUpper(strings.TrimSpace(declared))
	switch {
	case t == "":
		return model.String, nil
	case strings.Contains(t, "BOOL"):
	case strings.Contains(t, "INT"):
		return model.IntegerNumber, nil
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return model.String, nil
	case strings.Contains(t, "BLOB"):
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return model.DecimalNumber, nil
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return model.Date, nil
	default:
		// NUMERIC affinity
		return model.DecimalNumber, nil
	}
	return 0, fmt.Errorf("%w: SQLite type %s", model.ErrUnsupportedMapping, declared)
}
