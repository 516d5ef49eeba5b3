// Package mysql reads and writes MySQL databases given an open handle or a connection
// string.
package mysql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/dbsql"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Flavor is the MySQL engine description. Catalog queries are scoped to the
// connection's current database.
var Flavor = dbsql.Flavor{
	Format:  converters.FormatMySQL,
	Driver:  "mysql",
	Dialect: sqlgen.MySQL,
	Catalog: dbsql.Catalog{
		Tables: `SELECT table_name AS name
			FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		Columns: `SELECT column_name AS name, data_type AS type, column_key = 'PRI' AS pk
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`,
		Indexes: `SELECT index_name, non_unique = 0, column_name
			FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name != 'PRIMARY'
			ORDER BY index_name, seq_in_index`,
		ColumnType: ColumnType,
	},
	DSN: DSN,
}

// Module registers the MySQL reader and writer.
var Module = converters.Module{Namespace: "converters/mysql", Register: func(r *converters.Registry) {
	for _, kind := range []converters.Kind{converters.KindDatabase, converters.KindConnection} {
		r.RegisterReader(converters.FormatMySQL, kind, "mysql.Reader",
			func() converters.Reader { return dbsql.NewReader(Flavor) })
		r.RegisterWriter(converters.FormatMySQL, kind, "mysql.Writer",
			func() converters.Writer { return dbsql.NewWriter(Flavor) })
	}
}}

// DSN accepts a driver DSN ("user:pass@tcp(host:3306)/db") or the URL form left over
// from a jdbc qualifier ("//user:pass@host:3306/db?x=y") and returns a driver DSN with
// time parsing enabled.
func DSN(dsn string) (string, error) {
	var cfg *mysql.Config
	if strings.HasPrefix(dsn, "//") {
		u, err := url.Parse("mysql:" + dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse connection string: %w", err)
		}
		cfg = mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		if q := u.Query(); len(q) > 0 {
			cfg.Params = make(map[string]string, len(q))
			for k := range q {
				cfg.Params[k] = q.Get(k)
			}
		}
	} else {
		var err error
		if cfg, err = mysql.ParseDSN(dsn); err != nil {
			return "", fmt.Errorf("failed to parse connection string: %w", err)
		}
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// ColumnType maps an information_schema data type. Binary, bit, spatial and boolean
// types have no canonical type.
func ColumnType(declared string) (model.ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint", "year":
		return model.IntegerNumber, nil
	case "decimal", "numeric", "float", "double", "real":
		return model.DecimalNumber, nil
	case "date", "datetime", "timestamp":
		return model.Date, nil
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set", "json", "time":
		return model.String, nil
	}
	return 0, fmt.Errorf("%w: MySQL type %s", model.ErrUnsupportedMapping, declared)
}
