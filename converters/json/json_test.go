package json

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/model"
)

func sample(t *testing.T) *model.Metadata {
	t.Helper()
	table, err := model.NewTable("TableOne")
	if err != nil {
		t.Fatal(err)
	}
	table.Append("col1String", model.String)
	table.Append("col2Date", model.Date)
	table.Append("col3Integer", model.IntegerNumber)
	table.Append("col4Decimal", model.DecimalNumber)
	ix, _ := model.NewIndex("ix_one", "TableOne", []string{"col1String", "col3Integer"}, true)
	if err := table.AddIndex(ix); err != nil {
		t.Fatal(err)
	}

	md := model.New(true)
	md.AddTable(table)
	md.AddRow("TableOne", model.Row{
		"col1String":  "hello",
		"col2Date":    time.Date(2015, 1, 31, 0, 0, 0, 0, time.UTC),
		"col3Integer": int64(19),
		"col4Decimal": 1.5,
	})
	md.AddRow("TableOne", model.Row{
		"col1String":  nil,
		"col2Date":    nil,
		"col3Integer": int64(7),
		"col4Decimal": 2.0,
	})
	return md
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	md := sample(t)

	var buf bytes.Buffer
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &buf}, md, converters.Both); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := (&Reader{}).Read(ctx, converters.Stream{R: &buf}, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !got.Tables["TableOne"].Equal(md.Tables["TableOne"]) {
		t.Errorf("table definition changed: %v", got.Tables["TableOne"].Columns())
	}
	rows := got.Data["TableOne"]
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for i, want := range md.Data["TableOne"] {
		for k, v := range want {
			if d, ok := v.(time.Time); ok {
				if gd, ok := rows[i][k].(time.Time); !ok || !gd.Equal(d) {
					t.Errorf("row %d %s: got %v, want %v", i, k, rows[i][k], d)
				}
				continue
			}
			if rows[i][k] != v {
				t.Errorf("row %d %s: got %#v, want %#v", i, k, rows[i][k], v)
			}
		}
	}
}

func TestSchemaOnly(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &buf}, sample(t), converters.SchemaOnly); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.Contains(buf.String(), "hello") {
		t.Error("schema only output contains row data")
	}

	got, err := (&Reader{}).Read(ctx, converters.Stream{R: &buf}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.HasData || len(got.Data) != 0 {
		t.Errorf("got data %v", got.Data)
	}
	if len(got.Tables["TableOne"].Indexes()) != 1 {
		t.Error("index lost")
	}
}

func TestBareArray(t *testing.T) {
	input := `[
		{"name": "alice", "age": 30, "score": 1.5, "active": true, "addr": {"city": "Oslo"}, "tags": ["a", "b"]},
		{"name": "bob", "age": 41, "score": 2, "active": false, "joined": "2015-01-31"}
	]`
	md, err := (&Reader{}).Read(context.Background(), converters.Stream{R: strings.NewReader(input)}, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	table := md.Tables[ArrayTable]
	if table == nil {
		t.Fatalf("got tables %v", md.TableNames())
	}

	want := map[string]model.ColumnType{
		"active":    model.IntegerNumber,
		"addr.city": model.String,
		"age":       model.IntegerNumber,
		"joined":    model.Date,
		"name":      model.String,
		"score":     model.DecimalNumber,
		"tags":      model.String,
	}
	if table.Len() != len(want) {
		t.Fatalf("got %d columns, want %d", table.Len(), len(want))
	}
	for name, typ := range want {
		col, ok := table.Column(name)
		if !ok || col.Type != typ {
			t.Errorf("column %s: got %v, want %s", name, col, typ)
		}
	}
	// columns are in sorted key order
	if first, _ := table.ColumnAt(0); first.Name != "active" {
		t.Errorf("first column: got %s, want active", first.Name)
	}

	rows := md.Data[ArrayTable]
	if rows[0]["active"] != int64(1) || rows[1]["active"] != int64(0) {
		t.Errorf("booleans: got %v, %v", rows[0]["active"], rows[1]["active"])
	}
	if rows[0]["tags"] != `["a","b"]` {
		t.Errorf("nested array: got %#v", rows[0]["tags"])
	}
	if rows[1]["addr.city"] != nil {
		t.Errorf("missing key: got %#v, want nil", rows[1]["addr.city"])
	}
}

func TestNamedArrays(t *testing.T) {
	input := `{"users": [{"id": 1}], "orders": [{"total": 9.5}], "meta": {"v": 1}}`
	md, err := (&Reader{}).Read(context.Background(), converters.Stream{R: strings.NewReader(input)}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	names := md.TableNames()
	if len(names) != 2 || names[0] != "orders" || names[1] != "users" {
		t.Errorf("got tables %v, want [orders users]", names)
	}
}

func TestInvalid(t *testing.T) {
	ctx := context.Background()
	for _, input := range []string{"", "42", `"text"`} {
		if _, err := (&Reader{}).Read(ctx, converters.Stream{R: strings.NewReader(input)}, true); err == nil {
			t.Errorf("input %q: expected error", input)
		}
	}
	if _, err := (&Reader{}).Read(ctx, converters.Stream{R: strings.NewReader("")}, true); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
	if err := (&Writer{}).Write(ctx, converters.Stream{}, sample(t), converters.Both); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
}
