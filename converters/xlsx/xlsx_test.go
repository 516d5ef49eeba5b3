package xlsx

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/model"
)

func sampleMetadata(t *testing.T) *model.Metadata {
	t.Helper()
	table, err := model.NewTable("TableOne")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		name string
		typ  model.ColumnType
	}{
		{"col1String", model.String},
		{"col2Date", model.Date},
		{"col3Integer", model.IntegerNumber},
		{"col4Decimal", model.DecimalNumber},
	} {
		if err := table.Append(c.name, c.typ); err != nil {
			t.Fatal(err)
		}
	}
	md := model.New(true)
	if err := md.AddTable(table); err != nil {
		t.Fatal(err)
	}
	md.AddRow("TableOne", model.Row{
		"col1String":  "hello",
		"col2Date":    time.Date(2015, 1, 31, 0, 0, 0, 0, time.UTC),
		"col3Integer": int64(19),
		"col4Decimal": 1.5,
	})
	md.AddRow("TableOne", model.Row{
		"col1String":  "it's",
		"col2Date":    time.Date(2016, 2, 29, 13, 30, 15, 0, time.UTC),
		"col3Integer": int64(-4),
		"col4Decimal": 2.25,
	})
	return md
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	md := sampleMetadata(t)
	ctx := context.Background()

	if err := (&Writer{}).Write(ctx, converters.File{Path: path}, md, converters.Both); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := (&Reader{}).Read(ctx, converters.File{Path: path}, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	table := got.Tables["TableOne"]
	if table == nil {
		t.Fatalf("table missing, got %v", got.TableNames())
	}
	if !table.Equal(md.Tables["TableOne"]) {
		t.Errorf("got columns %v, want %v", table.Columns(), md.Tables["TableOne"].Columns())
	}

	rows := got.Data["TableOne"]
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := md.Data["TableOne"]
	for i := range want {
		for _, col := range []string{"col1String", "col3Integer", "col4Decimal"} {
			if rows[i][col] != want[i][col] {
				t.Errorf("row %d %s: got %#v, want %#v", i, col, rows[i][col], want[i][col])
			}
		}
		gd, ok := rows[i]["col2Date"].(time.Time)
		if !ok || !gd.Equal(want[i]["col2Date"].(time.Time)) {
			t.Errorf("row %d date: got %v, want %v", i, rows[i]["col2Date"], want[i]["col2Date"])
		}
	}
}

func TestSchemaOnly(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &buf}, sampleMetadata(t), converters.SchemaOnly); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := (&Reader{}).Read(ctx, converters.Stream{R: &buf}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.HasData {
		t.Error("schema read should not carry data")
	}
	table := got.Tables["TableOne"]
	if table == nil || table.Len() != 4 {
		t.Fatalf("got %v", got.Tables)
	}
	// a header-only sheet has no values to infer from
	for _, col := range table.Columns() {
		if col.Type != model.String {
			t.Errorf("column %s: got %s, want STRING", col.Name, col.Type)
		}
	}
}

func TestSheetNameTooLong(t *testing.T) {
	table, err := model.NewTable("quarterly_revenue_by_region_and_product_line")
	if err != nil {
		t.Fatal(err)
	}
	if err := table.Append("total", model.IntegerNumber); err != nil {
		t.Fatal(err)
	}
	md := model.New(false)
	if err := md.AddTable(table); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := (&Writer{}).Write(context.Background(), converters.Stream{W: &buf}, md, converters.Both); err == nil {
		t.Error("expected error for a sheet name over 31 characters")
	}
}

func TestInference(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	rows := [][]any{
		{"mixed", "ints", "decimals", "blank", "text"},
		{"a", 1, 1, nil, "x"},
		{2, 2, 2.5, nil, "y"},
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := (&Reader{}).Read(context.Background(), converters.Stream{R: &buf}, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := []model.ColumnType{model.String, model.IntegerNumber, model.DecimalNumber, model.String, model.String}
	for i, col := range got.Tables[sheet].Columns() {
		if col.Type != want[i] {
			t.Errorf("column %s: got %s, want %s", col.Name, col.Type, want[i])
		}
	}
	if v := got.Data[sheet][1]["mixed"]; v != "2" {
		t.Errorf("number in text column: got %#v, want \"2\"", v)
	}
	if v := got.Data[sheet][0]["blank"]; v != nil {
		t.Errorf("blank cell: got %#v, want nil", v)
	}
}

func TestBooleanUnsupported(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "flag")
	f.SetCellBool("Sheet1", "A2", true)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	_, err := (&Reader{}).Read(context.Background(), converters.Stream{R: &buf}, false)
	if !errors.Is(err, model.ErrUnsupportedMapping) {
		t.Errorf("got %v, want ErrUnsupportedMapping", err)
	}
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	if _, err := (&Reader{}).Read(ctx, converters.Connection{DSN: "x"}, false); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
	var buf bytes.Buffer
	bad := &model.Metadata{HasData: true, Tables: map[string]*model.TableDefinition{}, Data: map[string][]model.Row{"x": nil}}
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &buf}, bad, converters.Both); !errors.Is(err, model.ErrInvalidMetadata) {
		t.Errorf("got %v, want ErrInvalidMetadata", err)
	}
}

func TestIsDateFormat(t *testing.T) {
	tests := map[string]bool{
		DateNumFmt:          true,
		"d/m/yyyy":          true,
		"[$-409]mmmm d":     true,
		"#,##0.00":          false,
		`0.00 "days"`:       false,
		"[Red]0.00":         false,
		"General":           false,
		`\d0`:               false,
		"0.00E+00":          false,
		"[h]:mm:ss":         true,
	}
	for code, want := range tests {
		if got := isDateFormat(code); got != want {
			t.Errorf("isDateFormat(%q) = %v, want %v", code, got, want)
		}
	}
}
