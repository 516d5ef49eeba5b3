package markdown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/model"
)

const doc = "# Inventory\n" +
	"\n" +
	"| Item | Qty | Price | Added |\n" +
	"|:-----|----:|------:|-------|\n" +
	"| tea | 3 | 2.50 | 2024-01-31 |\n" +
	"| cups \\| saucers | 12 | 1 | |\n" +
	"\n" +
	"Some prose with a | pipe that is not a table.\n" +
	"\n" +
	"```\n" +
	"| fenced | table |\n" +
	"|--------|-------|\n" +
	"```\n" +
	"\n" +
	"<a id=\"todo\"></a>\n" +
	"* buy milk\n" +
	"  before noon\n" +
	"* call Bob\n" +
	"  * home\n" +
	"  * work\n" +
	"\n" +
	"| a | b |\n" +
	"|---|---|\n" +
	"| x | y |\n"

func TestRead(t *testing.T) {
	md, err := (&Reader{}).Read(context.Background(), converters.Stream{R: strings.NewReader(doc)}, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := md.TableNames(); len(got) != 3 {
		t.Fatalf("got tables %v, want Inventory, table2 and todo", got)
	}

	inventory := md.Tables["Inventory"]
	if inventory == nil {
		t.Fatalf("missing Inventory in %v", md.TableNames())
	}
	want := []struct {
		name string
		typ  model.ColumnType
	}{
		{"Item", model.String},
		{"Qty", model.IntegerNumber},
		{"Price", model.DecimalNumber},
		{"Added", model.Date},
	}
	for i, col := range inventory.Columns() {
		if col.Name != want[i].name || col.Type != want[i].typ {
			t.Errorf("column %d: got %s %s, want %s %s", i, col.Name, col.Type, want[i].name, want[i].typ)
		}
	}
	rows := md.Data["Inventory"]
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1]["Item"] != "cups | saucers" {
		t.Errorf("got %q, want escaped pipe kept", rows[1]["Item"])
	}
	if rows[1]["Added"] != nil {
		t.Errorf("got %v, want nil for empty date", rows[1]["Added"])
	}

	todo := md.Data["todo"]
	if len(todo) != 2 {
		t.Fatalf("got todo rows %v", todo)
	}
	if todo[0]["key"] != "buy milk" || todo[0]["value"] != "before noon" {
		t.Errorf("got %v", todo[0])
	}
	if todo[1]["key"] != "call Bob" || todo[1]["value"] != "* home\n* work" {
		t.Errorf("got %v", todo[1])
	}

	if rows := md.Data["table2"]; len(rows) != 1 || rows[0]["a"] != "x" {
		t.Errorf("got unnamed table rows %v", rows)
	}
}

func TestReadSchemaOnly(t *testing.T) {
	opts := converters.DefaultOptions()
	opts.SanitizeNames = true
	r := &Reader{}
	r.SetOptions(opts)

	md, err := r.Read(context.Background(), converters.Stream{R: strings.NewReader("## Price List\n| Product Name | Cost |\n|---|---|\n| tea | 2 |\n")}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if md.HasData || len(md.Data) != 0 {
		t.Error("schema-only read must not carry rows")
	}
	table := md.Tables["price_list"]
	if table == nil {
		t.Fatalf("got tables %v", md.TableNames())
	}
	if col, ok := table.Column("product_name"); !ok || col.Type != model.String {
		t.Errorf("got columns %v", table.Columns())
	}
}

func TestReadInvalidResource(t *testing.T) {
	_, err := (&Reader{}).Read(context.Background(), converters.Connection{DSN: "x"}, true)
	if !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
}
