// Package sqlscript exports the canonical model as an SQL script: CREATE TABLE and
// CREATE INDEX statements followed by one INSERT per row.
package sqlscript

import (
	"bufio"
	"context"
	"fmt"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Module registers the script writer.
var Module = converters.Module{Namespace: "converters/sqlscript", Register: func(r *converters.Registry) {
	r.RegisterWriter(converters.FormatSQL, converters.KindStream, "sqlscript.Writer",
		func() converters.Writer { return &Writer{} })
}}

// Writer renders statements in the dialect named by Options.Dialect (SQLite by default).
type Writer struct {
	opts *converters.Options
}

var (
	_ converters.Writer       = (*Writer)(nil)
	_ converters.OptionsAware = (*Writer)(nil)
)

func (w *Writer) SetOptions(opts *converters.Options) { w.opts = opts }

// Dialect returns the dialect the writer renders with.
func (w *Writer) Dialect() (sqlgen.Dialect, error) {
	if w.opts == nil {
		return sqlgen.SQLite, nil
	}
	d := sqlgen.SQLite
	if w.opts.Dialect != "" {
		var ok bool
		if d, ok = sqlgen.Lookup(w.opts.Dialect); !ok {
			return sqlgen.Dialect{}, fmt.Errorf("unknown SQL dialect %q", w.opts.Dialect)
		}
	}
	if w.opts.DateLayout != "" {
		d.DateLayout = w.opts.DateLayout
	}
	return d.WithDecimalType(w.opts.DecimalType), nil
}

// Write implements converters.Writer.
func (w *Writer) Write(ctx context.Context, dst converters.Resource, md *model.Metadata, wt converters.WriteType) error {
	if err := md.Validate(); err != nil {
		return err
	}
	for _, name := range md.TableNames() {
		if err := sqlgen.CheckColumns(md.Tables[name]); err != nil {
			return err
		}
	}
	d, err := w.Dialect()
	if err != nil {
		return err
	}
	out, err := common.CreateDestination(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	bw := bufio.NewWriterSize(out, 65536)
	for i, name := range md.TableNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			bw.WriteByte('\n')
		}
		if err := writeTable(bw, d, md, name, wt); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write SQL script: %w", err)
	}
	return out.Close()
}

func writeTable(bw *bufio.Writer, d sqlgen.Dialect, md *model.Metadata, name string, wt converters.WriteType) error {
	t := md.Tables[name]
	if wt.Schema() {
		if _, err := fmt.Fprintln(bw, d.CreateTable(t)); err != nil {
			return fmt.Errorf("failed to write CREATE TABLE for %s: %w", name, err)
		}
		for _, ix := range t.Indexes() {
			if _, err := fmt.Fprintln(bw, d.CreateIndex(ix)); err != nil {
				return fmt.Errorf("failed to write CREATE INDEX for %s: %w", name, err)
			}
		}
	}
	if !wt.Data() || !md.HasData {
		return nil
	}
	for _, row := range md.Data[name] {
		if _, err := fmt.Fprintln(bw, d.Insert(t, row)); err != nil {
			return fmt.Errorf("failed to write INSERT for %s: %w", name, err)
		}
	}
	return nil
}
