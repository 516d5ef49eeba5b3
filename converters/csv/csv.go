// Package csv reads and writes delimited text holding a single table.
package csv

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// DefaultTable names the table when neither options nor the source name provide one.
const DefaultTable = "tb0"

const bom = "\uFEFF"

// Module registers the CSV reader and writer.
var Module = converters.Module{Namespace: "converters/csv", Register: register}

func register(r *converters.Registry) {
	r.RegisterReader(converters.FormatCSV, converters.KindStream, "csv.Reader",
		func() converters.Reader { return &Reader{} })
	r.RegisterWriter(converters.FormatCSV, converters.KindStream, "csv.Writer",
		func() converters.Writer { return &Writer{} })
}

// Reader reads one table: the first record holds the column names and column types are
// inferred over all remaining records.
type Reader struct {
	opts *converters.Options
}

var (
	_ converters.Reader       = (*Reader)(nil)
	_ converters.OptionsAware = (*Reader)(nil)
)

func (r *Reader) SetOptions(opts *converters.Options) { r.opts = opts }

// Read implements converters.Reader.
func (r *Reader) Read(ctx context.Context, src converters.Resource, includeData bool) (*model.Metadata, error) {
	rc, base, err := common.OpenSource(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	opts := r.options()
	br := bufio.NewReaderSize(rc, 65536)
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = common.PeekDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV has no header row", converters.ErrInvalidResource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}

	var records [][]string
	for {
		if len(records)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}

	headers := common.HeaderNames(header, opts.SanitizeNames)
	table, rows, err := common.TextTable(tableName(opts, base), headers, records, includeData)
	if err != nil {
		return nil, err
	}
	md := model.New(includeData)
	if err := md.AddTable(table); err != nil {
		return nil, err
	}
	for _, row := range rows {
		md.AddRow(table.Name, row)
	}
	return md, nil
}

func (r *Reader) options() *converters.Options {
	if r.opts == nil {
		return converters.DefaultOptions()
	}
	return r.opts
}

func tableName(opts *converters.Options, base string) string {
	if opts.TableName != "" {
		return opts.TableName
	}
	if base == "" {
		return DefaultTable
	}
	if opts.SanitizeNames {
		return sqlgen.TableNames([]string{base})[0]
	}
	return base
}

// Writer writes a single table. With several tables in the envelope the one named by
// Options.TableName is written.
type Writer struct {
	opts *converters.Options
}

var (
	_ converters.Writer       = (*Writer)(nil)
	_ converters.OptionsAware = (*Writer)(nil)
)

func (w *Writer) SetOptions(opts *converters.Options) { w.opts = opts }

// Write implements converters.Writer.
func (w *Writer) Write(ctx context.Context, dst converters.Resource, md *model.Metadata, wt converters.WriteType) error {
	if err := md.Validate(); err != nil {
		return err
	}
	opts := w.opts
	if opts == nil {
		opts = converters.DefaultOptions()
	}
	table, err := pickTable(md, opts.TableName)
	if err != nil {
		return err
	}

	out, err := common.CreateDestination(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	cw := csv.NewWriter(out)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	cols := table.Columns()
	record := make([]string, len(cols))
	for i, col := range cols {
		record[i] = col.Name
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if wt.Data() && md.HasData {
		for n, row := range md.Data[table.Name] {
			if n%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			for i, col := range cols {
				record[i] = common.FormatValue(row[col.Name], opts.DateLayout)
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV row %d: %w", n+1, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return out.Close()
}

func pickTable(md *model.Metadata, name string) (*model.TableDefinition, error) {
	if name != "" {
		if t, ok := md.Tables[name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: table %s not found", model.ErrInvalidMetadata, name)
	}
	switch len(md.Tables) {
	case 0:
		return nil, fmt.Errorf("%w: no table to write", model.ErrInvalidMetadata)
	case 1:
		for _, t := range md.Tables {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: CSV holds one table, got %d; set the table name", model.ErrInvalidMetadata, len(md.Tables))
}
