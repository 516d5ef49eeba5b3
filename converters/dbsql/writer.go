package dbsql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/logger"
	"github.com/darianmavgo/tabconv/model"
)

// DefaultBatchSize is the number of rows per transaction when no option sets one.
const DefaultBatchSize = 1000

// Writer creates tables and indexes and inserts rows through a prepared statement,
// committing every BatchSize rows so long loads keep their progress.
type Writer struct {
	Flavor Flavor
	opts   *converters.Options
	logger *zap.Logger
}

var (
	_ converters.Writer       = (*Writer)(nil)
	_ converters.OptionsAware = (*Writer)(nil)
	_ converters.LoggerAware  = (*Writer)(nil)
)

// NewWriter returns a writer for f.
func NewWriter(f Flavor) *Writer { return &Writer{Flavor: f} }

func (w *Writer) SetOptions(opts *converters.Options) { w.opts = opts }

func (w *Writer) SetLogger(l *zap.Logger) { w.logger = l }

func (w *Writer) dialect() sqlgen.Dialect {
	if w.opts == nil {
		return w.Flavor.Dialect
	}
	return w.Flavor.Dialect.WithDecimalType(w.opts.DecimalType)
}

func (w *Writer) batchSize() int {
	if w.opts == nil || w.opts.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return w.opts.BatchSize
}

// Write implements converters.Writer. Writing a schema to a file destination replaces
// the file; DATA_ONLY appends to the tables already there.
func (w *Writer) Write(ctx context.Context, dst converters.Resource, md *model.Metadata, wt converters.WriteType) (err error) {
	if err := md.Validate(); err != nil {
		return err
	}
	for _, name := range md.TableNames() {
		if err := sqlgen.CheckColumns(md.Tables[name]); err != nil {
			return err
		}
	}
	h, err := w.Flavor.open(ctx, dst, true, wt.Schema())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.close(err == nil); err == nil {
			err = cerr
		}
	}()

	log := logger.OrNop(w.logger).With(zap.String("format", string(w.Flavor.Format)))
	d := w.dialect()
	for _, name := range md.TableNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := md.Tables[name]
		if wt.Schema() {
			if err := createTable(ctx, h.db, d, t); err != nil {
				return err
			}
			log.Debug("created table", zap.String("table", name), zap.Int("columns", t.Len()))
		}
		if !wt.Data() || !md.HasData {
			continue
		}
		n, err := w.insertRows(ctx, h.db, d, t, md.Data[name])
		if err != nil {
			return err
		}
		log.Debug("finished table", zap.String("table", name), zap.Int("rows", n))
	}
	return nil
}

func createTable(ctx context.Context, db *sqlx.DB, d sqlgen.Dialect, t *model.TableDefinition) error {
	if _, err := db.ExecContext(ctx, d.CreateTable(t)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}
	for _, ix := range t.Indexes() {
		if _, err := db.ExecContext(ctx, d.CreateIndex(ix)); err != nil {
			return fmt.Errorf("failed to create index %s: %w", ix.Name, err)
		}
	}
	return nil
}

func (w *Writer) insertRows(ctx context.Context, db *sqlx.DB, d sqlgen.Dialect, t *model.TableDefinition, rows []model.Row) (int, error) {
	insertSQL, fields := d.InsertTemplate(t)
	if len(fields) == 0 || len(rows) == 0 {
		return 0, nil
	}
	mainStmt, err := db.PreparexContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert statement for table %s: %w", t.Name, err)
	}
	defer mainStmt.Close()

	batch := w.batchSize()
	count := 0
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		if err := w.insertBatch(ctx, db, mainStmt, fields, rows[start:end]); err != nil {
			return count, fmt.Errorf("failed to insert rows in table %s: %w", t.Name, err)
		}
		count = end
	}
	return count, nil
}

func (w *Writer) insertBatch(ctx context.Context, db *sqlx.DB, mainStmt *sqlx.Stmt, fields []string, rows []model.Row) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt := tx.StmtxContext(ctx, mainStmt)
	for _, row := range rows {
		args := sqlgen.Values(fields, row)
		for i, v := range args {
			args[i] = w.Flavor.bind(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
