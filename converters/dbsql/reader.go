package dbsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/model"
)

// Reader reads every user table of a database. Rows come back in primary key order
// when the table has one.
type Reader struct {
	Flavor Flavor
	opts   *converters.Options
}

var (
	_ converters.Reader       = (*Reader)(nil)
	_ converters.OptionsAware = (*Reader)(nil)
)

// NewReader returns a reader for f.
func NewReader(f Flavor) *Reader { return &Reader{Flavor: f} }

func (r *Reader) SetOptions(opts *converters.Options) { r.opts = opts }

// Read implements converters.Reader.
func (r *Reader) Read(ctx context.Context, src converters.Resource, includeData bool) (*model.Metadata, error) {
	h, err := r.Flavor.open(ctx, src, false, false)
	if err != nil {
		return nil, err
	}
	defer h.close(false)

	names, err := r.Flavor.Tables(ctx, h.db)
	if err != nil {
		return nil, err
	}
	md := model.New(includeData)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, keys, err := r.table(ctx, h.db, name)
		if err != nil {
			return nil, err
		}
		if err := md.AddTable(table); err != nil {
			return nil, err
		}
		if !includeData {
			continue
		}
		rows, err := r.rows(ctx, h.db, table, keys)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			md.AddRow(name, row)
		}
	}
	return md, nil
}

func (r *Reader) table(ctx context.Context, db *sqlx.DB, name string) (*model.TableDefinition, []string, error) {
	cols, err := r.Flavor.Columns(ctx, db, name)
	if err != nil {
		return nil, nil, err
	}
	table, err := model.NewTable(name)
	if err != nil {
		return nil, nil, err
	}
	var keys []string
	for _, col := range cols {
		typ, err := r.Flavor.Catalog.ColumnType(col.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("table %s column %s: %w", name, col.Name, err)
		}
		if err := table.Append(col.Name, typ); err != nil {
			return nil, nil, err
		}
		if col.PrimaryKey {
			keys = append(keys, col.Name)
		}
	}

	indexes, err := r.Flavor.Indexes(ctx, db, name)
	if err != nil {
		return nil, nil, err
	}
	for _, ix := range indexes {
		if err := table.AddIndex(ix); err != nil {
			return nil, nil, fmt.Errorf("failed to add index %s: %w", ix.Name, err)
		}
	}
	return table, keys, nil
}

func (r *Reader) rows(ctx context.Context, db *sqlx.DB, table *model.TableDefinition, keys []string) ([]model.Row, error) {
	d := r.Flavor.Dialect
	cols := table.Columns()
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = d.QuoteIdent(col.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ","), d.QuoteIdent(table.Name))
	if len(keys) > 0 {
		order := make([]string, len(keys))
		for i, k := range keys {
			order[i] = d.QuoteIdent(k)
		}
		query += " ORDER BY " + strings.Join(order, ",")
	}

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table.Name, err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row of table %s: %w", table.Name, err)
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			v, err := model.Coerce(col.Type, values[i])
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", table.Name, col.Name, err)
			}
			row[col.Name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table.Name, err)
	}
	return out, nil
}
