package json

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Module registers the JSON reader and writer.
var Module = converters.Module{Namespace: "converters/json", Register: register}

func register(r *converters.Registry) {
	r.RegisterReader(converters.FormatJSON, converters.KindStream, "json.Reader",
		func() converters.Reader { return &Reader{} })
	r.RegisterWriter(converters.FormatJSON, converters.KindStream, "json.Writer",
		func() converters.Writer { return &Writer{} })
}

// Reader reads JSON documents into the canonical model.
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
	rc, _, err := common.OpenSource(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	raw = bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty JSON input", converters.ErrInvalidResource)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := r.opts
	if opts == nil {
		opts = converters.DefaultOptions()
	}
	md := model.New(includeData)

	switch raw[0] {
	case '[':
		var items []any
		if err := decode(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
		if err := addInferred(md, ArrayTable, items, opts.SanitizeNames); err != nil {
			return nil, err
		}
	case '{':
		var top map[string]gojson.RawMessage
		if err := decode(raw, &top); err != nil {
			return nil, fmt.Errorf("failed to decode JSON object: %w", err)
		}
		if isDocument(top) {
			var doc document
			if err := decode(raw, &doc); err != nil {
				return nil, fmt.Errorf("failed to decode JSON document: %w", err)
			}
			if err := readDocument(md, doc, opts); err != nil {
				return nil, err
			}
			break
		}
		if err := readArrays(md, top, opts.SanitizeNames); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expected JSON object or array at root")
	}
	return md, nil
}

func decode(raw []byte, v any) error {
	dec := gojson.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func readDocument(md *model.Metadata, doc document, opts *converters.Options) error {
	for _, td := range doc.Tables {
		table, err := model.NewTable(td.Name)
		if err != nil {
			return err
		}
		for _, cd := range td.Columns {
			typ, err := model.ParseColumnType(cd.Type)
			if err != nil {
				return fmt.Errorf("table %s column %s: %w", td.Name, cd.Name, err)
			}
			if err := table.Append(cd.Name, typ); err != nil {
				return err
			}
		}
		for _, id := range td.Indexes {
			ix, err := model.NewIndex(id.Name, td.Name, id.Columns, id.Unique)
			if err != nil {
				return err
			}
			if err := table.AddIndex(ix); err != nil {
				return err
			}
		}
		if err := md.AddTable(table); err != nil {
			return err
		}
		if !md.HasData {
			continue
		}
		cols := table.Columns()
		for n, obj := range td.Rows {
			row := make(model.Row, len(cols))
			for _, col := range cols {
				v, err := canonical(col.Type, obj[col.Name], opts.DateLayout)
				if err != nil {
					return fmt.Errorf("table %s row %d column %s: %w", td.Name, n+1, col.Name, err)
				}
				row[col.Name] = v
			}
			md.AddRow(table.Name, row)
		}
	}
	return nil
}

func readArrays(md *model.Metadata, top map[string]gojson.RawMessage, sanitize bool) error {
	var keys []string
	for k, v := range top {
		if trimmed := bytes.TrimSpace(v); len(trimmed) > 0 && trimmed[0] == '[' {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	names := keys
	if sanitize {
		names = sqlgen.TableNames(keys)
	}
	for i, k := range keys {
		var items []any
		if err := decode(top[k], &items); err != nil {
			return fmt.Errorf("failed to decode array %s: %w", k, err)
		}
		if err := addInferred(md, names[i], items, sanitize); err != nil {
			return err
		}
	}
	return nil
}

// addInferred builds a table from an array of objects. Nested objects are flattened
// into dotted column names and nested arrays are kept as JSON text. Non-object items
// land in a single "value" column.
func addInferred(md *model.Metadata, name string, items []any, sanitize bool) error {
	flats := make([]map[string]any, len(items))
	seen := make(map[string]bool)
	var keys []string
	for i, item := range items {
		flat := make(map[string]any)
		if obj, ok := item.(map[string]any); ok {
			if err := flatten("", obj, flat); err != nil {
				return err
			}
		} else if err := flatten("", map[string]any{"value": item}, flat); err != nil {
			return err
		}
		for k := range flat {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		flats[i] = flat
	}
	sort.Strings(keys)

	headers := common.HeaderNames(keys, sanitize)
	table, err := model.NewTable(name)
	if err != nil {
		return err
	}
	for i, k := range keys {
		if err := table.Append(headers[i], inferType(flats, k)); err != nil {
			return err
		}
	}
	if err := md.AddTable(table); err != nil {
		return err
	}
	if !md.HasData {
		return nil
	}

	cols := table.Columns()
	for n, flat := range flats {
		row := make(model.Row, len(cols))
		for _, col := range cols {
			v, err := canonical(col.Type, flat[keys[col.Index]], "")
			if err != nil {
				return fmt.Errorf("table %s row %d column %s: %w", name, n+1, col.Name, err)
			}
			row[col.Name] = v
		}
		md.AddRow(name, row)
	}
	return nil
}

func flatten(prefix string, obj map[string]any, out map[string]any) error {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case map[string]any:
			if err := flatten(key, x, out); err != nil {
				return err
			}
		case []any:
			b, err := gojson.Marshal(x)
			if err != nil {
				return fmt.Errorf("failed to encode nested array %s: %w", key, err)
			}
			out[key] = string(b)
		default:
			out[key] = v
		}
	}
	return nil
}

type valueKind int

const (
	kindNone valueKind = iota
	kindText
	kindInteger
	kindDecimal
	kindDate
)

func kindOf(v any) valueKind {
	switch x := v.(type) {
	case nil:
		return kindNone
	case bool:
		return kindInteger
	case gojson.Number:
		if _, err := x.Int64(); err == nil && !strings.ContainsAny(x.String(), ".eE") {
			return kindInteger
		}
		return kindDecimal
	case string:
		if _, err := model.ParseDate(x); err == nil {
			return kindDate
		}
	}
	return kindText
}

func inferType(flats []map[string]any, key string) model.ColumnType {
	var counts [kindDate + 1]int
	for _, flat := range flats {
		counts[kindOf(flat[key])]++
	}
	numbers := counts[kindInteger] + counts[kindDecimal]
	switch {
	case counts[kindText] > 0, counts[kindDate] > 0 && numbers > 0:
		return model.String
	case counts[kindDate] > 0:
		return model.Date
	case counts[kindDecimal] > 0:
		return model.DecimalNumber
	case counts[kindInteger] > 0:
		return model.IntegerNumber
	}
	return model.String
}

// canonical converts a decoded JSON value into the canonical value for typ. Booleans
// count as the integers 1 and 0.
func canonical(typ model.ColumnType, v any, layout string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if typ == model.String {
			return fmt.Sprint(x), nil
		}
		if x {
			v = int64(1)
		} else {
			v = int64(0)
		}
	case gojson.Number:
		if typ == model.String {
			return x.String(), nil
		}
		if n, err := x.Int64(); err == nil {
			v = n
		} else if f, err := x.Float64(); err == nil {
			v = f
		} else {
			return nil, fmt.Errorf("%w: number %s", model.ErrUnsupportedMapping, x)
		}
	case string:
		if typ == model.Date && layout != "" {
			if d, err := time.Parse(layout, x); err == nil {
				return d, nil
			}
		}
	case map[string]any, []any:
		b, err := gojson.Marshal(x)
		if err != nil {
			return nil, err
		}
		v = string(b)
	}
	return model.Coerce(typ, v)
}
