package sqlscript

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
	ix, _ := model.NewIndex("ix_one", "TableOne", []string{"col3Integer"}, false)
	table.AddIndex(ix)

	md := model.New(true)
	md.AddTable(table)
	md.AddRow("TableOne", model.Row{
		"col1String":  "hello",
		"col2Date":    time.Date(2015, 1, 31, 0, 0, 0, 0, time.UTC),
		"col3Integer": int64(19),
		"col4Decimal": 1.5,
	})
	md.AddRow("TableOne", model.Row{"col1String": "it's"})
	return md
}

func write(t *testing.T, w *Writer, md *model.Metadata, wt converters.WriteType) []string {
	t.Helper()
	var buf bytes.Buffer
	if err := w.Write(context.Background(), converters.Stream{W: &buf}, md, wt); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestWriteBoth(t *testing.T) {
	lines := write(t, &Writer{}, sample(t), converters.Both)
	want := []string{
		`CREATE TABLE TableOne (id INTEGER PRIMARY KEY AUTOINCREMENT,"col1String" TEXT,"col2Date" DATE,"col3Integer" INTEGER,"col4Decimal" REAL);`,
		`CREATE INDEX "ix_one" ON TableOne ("col3Integer");`,
		`INSERT INTO 'TableOne' ("col1String","col2Date","col3Integer","col4Decimal") VALUES ('hello','2015-01-31 00:00:00.000',19,1.5);`,
		`INSERT INTO 'TableOne' ("col1String","col2Date","col3Integer","col4Decimal") VALUES ('it''s',NULL,NULL,NULL);`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got %s\nwant %s", i, lines[i], want[i])
		}
	}
}

func TestWriteTypes(t *testing.T) {
	schema := write(t, &Writer{}, sample(t), converters.SchemaOnly)
	if len(schema) != 2 || !strings.HasPrefix(schema[0], "CREATE TABLE") {
		t.Errorf("schema only: got %v", schema)
	}
	data := write(t, &Writer{}, sample(t), converters.DataOnly)
	if len(data) != 2 {
		t.Fatalf("data only: got %v", data)
	}
	for _, l := range data {
		if !strings.HasPrefix(l, "INSERT INTO") {
			t.Errorf("data only: unexpected line %s", l)
		}
	}
}

func TestDialectOptions(t *testing.T) {
	opts := converters.DefaultOptions()
	opts.Dialect = "postgres"
	opts.DecimalType = "NUMERIC(18,4)"
	w := &Writer{}
	w.SetOptions(opts)

	lines := write(t, w, sample(t), converters.SchemaOnly)
	const want = `CREATE TABLE "TableOne" (id SERIAL PRIMARY KEY,"col1String" TEXT,"col2Date" TIMESTAMP,"col3Integer" BIGINT,"col4Decimal" NUMERIC(18,4));`
	if lines[0] != want {
		t.Errorf("got %s\nwant %s", lines[0], want)
	}

	opts.Dialect = "oracle"
	if _, err := w.Dialect(); err == nil {
		t.Error("expected unknown dialect error")
	}
}

func TestWriteInvalid(t *testing.T) {
	ctx := context.Background()
	if err := (&Writer{}).Write(ctx, converters.Stream{}, sample(t), converters.Both); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
	md := model.New(true)
	md.Tables["broken"] = nil
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &bytes.Buffer{}}, md, converters.Both); !errors.Is(err, converters.ErrInvalidMetadata) {
		t.Errorf("got %v, want ErrInvalidMetadata", err)
	}
}
