package csv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/model"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		delimiter rune
		headers   []string
		types     []model.ColumnType
		rows      int
	}{
		{
			name:    "Comma",
			input:   "name,age,score\nalice,30,1.5\nbob,41,2\n",
			headers: []string{"name", "age", "score"},
			types:   []model.ColumnType{model.String, model.IntegerNumber, model.DecimalNumber},
			rows:    2,
		},
		{
			name:    "DetectedSemicolon",
			input:   "a;b\n2015-01-31;x\n",
			headers: []string{"a", "b"},
			types:   []model.ColumnType{model.Date, model.String},
			rows:    1,
		},
		{
			name:      "ExplicitTab",
			input:     "a\tb\n1\t2\n",
			delimiter: '\t',
			headers:   []string{"a", "b"},
			types:     []model.ColumnType{model.IntegerNumber, model.IntegerNumber},
			rows:      1,
		},
		{
			name:    "ByteOrderMark",
			input:   "\uFEFFid,v\n1,2\n",
			headers: []string{"id", "v"},
			types:   []model.ColumnType{model.IntegerNumber, model.IntegerNumber},
			rows:    1,
		},
		{
			name:    "RaggedRows",
			input:   "a,b,c\n1\n2,3,4,5\n",
			headers: []string{"a", "b", "c"},
			types:   []model.ColumnType{model.IntegerNumber, model.IntegerNumber, model.IntegerNumber},
			rows:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := converters.DefaultOptions()
			opts.Delimiter = tt.delimiter
			r := &Reader{}
			r.SetOptions(opts)

			md, err := r.Read(context.Background(), converters.Stream{R: strings.NewReader(tt.input)}, true)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			table := md.Tables[DefaultTable]
			if table == nil {
				t.Fatalf("got tables %v, want %s", md.TableNames(), DefaultTable)
			}
			cols := table.Columns()
			if len(cols) != len(tt.headers) {
				t.Fatalf("got %d columns, want %d", len(cols), len(tt.headers))
			}
			for i, col := range cols {
				if col.Name != tt.headers[i] || col.Type != tt.types[i] {
					t.Errorf("column %d: got %s %s, want %s %s", i, col.Name, col.Type, tt.headers[i], tt.types[i])
				}
			}
			if got := len(md.Data[DefaultTable]); got != tt.rows {
				t.Errorf("got %d rows, want %d", got, tt.rows)
			}
		})
	}
}

func TestReadTableName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Sales Report.csv")
	if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	md, err := (&Reader{}).Read(context.Background(), converters.File{Path: path}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, ok := md.Tables["Sales Report"]; !ok {
		t.Errorf("got tables %v, want Sales Report", md.TableNames())
	}

	opts := converters.DefaultOptions()
	opts.SanitizeNames = true
	r := &Reader{}
	r.SetOptions(opts)
	md, err = r.Read(context.Background(), converters.File{Path: path}, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, ok := md.Tables["sales_report"]; !ok {
		t.Errorf("got tables %v, want sales_report", md.TableNames())
	}
}

func TestReadEmpty(t *testing.T) {
	_, err := (&Reader{}).Read(context.Background(), converters.Stream{R: strings.NewReader("")}, true)
	if !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	input := "name,age,joined\n\"O'Brien, Pat\",30,2015-01-31 00:00:00.000\nbob,,\n"
	ctx := context.Background()
	md, err := (&Reader{}).Read(ctx, converters.Stream{R: strings.NewReader(input)}, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var buf bytes.Buffer
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &buf}, md, converters.Both); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != input {
		t.Errorf("got %q, want %q", buf.String(), input)
	}

	buf.Reset()
	if err := (&Writer{}).Write(ctx, converters.Stream{W: &buf}, md, converters.SchemaOnly); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != "name,age,joined\n" {
		t.Errorf("schema only: got %q", buf.String())
	}
}

func TestWriteSeveralTables(t *testing.T) {
	md := model.New(false)
	for _, name := range []string{"a", "b"} {
		table, _ := model.NewTable(name)
		table.Append("x", model.String)
		md.AddTable(table)
	}

	var buf bytes.Buffer
	err := (&Writer{}).Write(context.Background(), converters.Stream{W: &buf}, md, converters.SchemaOnly)
	if !errors.Is(err, model.ErrInvalidMetadata) {
		t.Errorf("got %v, want ErrInvalidMetadata", err)
	}

	opts := converters.DefaultOptions()
	opts.TableName = "b"
	opts.Delimiter = ';'
	w := &Writer{}
	w.SetOptions(opts)
	if err := w.Write(context.Background(), converters.Stream{W: &buf}, md, converters.SchemaOnly); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != "x\n" {
		t.Errorf("got %q", buf.String())
	}
}
