package json

import (
	"context"
	"fmt"
	"math"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/model"
)

// Writer writes the envelope document. Rows are included unless the write type is
// SCHEMA_ONLY; DATA_ONLY still carries the column list so the document can be read back.
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
	layout := model.DateLayout
	if w.opts != nil && w.opts.DateLayout != "" {
		layout = w.opts.DateLayout
	}

	doc := document{Tables: make([]tableDoc, 0, len(md.Tables))}
	for _, name := range md.TableNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc.Tables = append(doc.Tables, tableDocument(md, name, wt, layout))
	}

	out, err := common.CreateDestination(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := gojson.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return out.Close()
}

func tableDocument(md *model.Metadata, name string, wt converters.WriteType, layout string) tableDoc {
	t := md.Tables[name]
	cols := t.Columns()
	td := tableDoc{Name: name, Columns: make([]columnDoc, len(cols))}
	for i, col := range cols {
		td.Columns[i] = columnDoc{Name: col.Name, Type: col.Type.String()}
	}
	for _, ix := range t.Indexes() {
		td.Indexes = append(td.Indexes, indexDoc{Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique})
	}
	if !wt.Data() || !md.HasData {
		return td
	}
	for _, row := range md.Data[name] {
		obj := make(map[string]any, len(cols))
		for _, col := range cols {
			obj[col.Name] = jsonValue(row[col.Name], layout)
		}
		td.Rows = append(td.Rows, obj)
	}
	return td
}

func jsonValue(v any, layout string) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(layout)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}
