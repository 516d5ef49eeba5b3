package common

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/model"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected rune
	}{
		{"Empty", "", ','},
		{"Comma", "a,b,c", ','},
		{"Tab", "a\tb\tc", '\t'},
		{"Semicolon", "a;b;c", ';'},
		{"Pipe", "a|b|c", '|'},
		{"MixedPreferComma", "a,b;c", ','},
		{"MixedPreferTab", "a\tb\tc,d", '\t'},
		{"NoDelimiter", "abc", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDelimiter(tt.line)
			if got != tt.expected {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.line, got, tt.expected)
			}
		})
	}
}

func TestColumnCount(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		delimiter rune
		expected  int
	}{
		{"Empty", "", ',', 0},
		{"Single", "abc", ',', 1},
		{"CommaThree", "a,b,c", ',', 3},
		{"TabTwo", "a\tb", '\t', 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColumnCount(tt.line, tt.delimiter)
			if got != tt.expected {
				t.Errorf("ColumnCount(%q, %q) = %d, want %d", tt.line, tt.delimiter, got, tt.expected)
			}
		})
	}
}

func TestPeekDelimiter(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("a;b;c\n1,2;3\n"))
	if got := PeekDelimiter(br); got != ';' {
		t.Errorf("got %q, want ';'", got)
	}
	rest, _ := io.ReadAll(br)
	if !strings.HasPrefix(string(rest), "a;b;c") {
		t.Errorf("peek consumed input: %q", rest)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  model.ColumnType
	}{
		{"Empty", nil, model.String},
		{"Blank", []string{"", " "}, model.String},
		{"Integers", []string{"1", "-20", "", "300"}, model.IntegerNumber},
		{"Decimals", []string{"1", "2.5"}, model.DecimalNumber},
		{"Dates", []string{"2015-01-31", "2015-02-01 10:00:00"}, model.Date},
		{"Text", []string{"hello", "1"}, model.String},
		{"LeadingZero", []string{"007", "12"}, model.String},
		{"NaN", []string{"NaN"}, model.String},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferType(tt.cells); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHeaderNames(t *testing.T) {
	got := HeaderNames([]string{" Name ", "", "Name", "a.b"}, false)
	want := []string{"Name", "cl1", "Name2", "a.b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("at index %d: got %s, want %s", i, got[i], want[i])
		}
	}

	got = HeaderNames([]string{"First Name", "select"}, true)
	want = []string{"first_name", "select_"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sanitized at index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTextTable(t *testing.T) {
	records := [][]string{
		{"alice", "30", "1.5", "2015-01-31"},
		{"bob", "", "2"},
	}
	table, rows, err := TextTable("people", []string{"name", "age", "score", "joined"}, records, true)
	if err != nil {
		t.Fatalf("TextTable failed: %v", err)
	}

	wantTypes := []model.ColumnType{model.String, model.IntegerNumber, model.DecimalNumber, model.Date}
	for i, col := range table.Columns() {
		if col.Type != wantTypes[i] {
			t.Errorf("column %s: got %s, want %s", col.Name, col.Type, wantTypes[i])
		}
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["age"] != int64(30) {
		t.Errorf("age: got %#v, want 30", rows[0]["age"])
	}
	if rows[1]["age"] != nil || rows[1]["joined"] != nil {
		t.Errorf("missing cells should be nil: %#v", rows[1])
	}
	if d, ok := rows[0]["joined"].(time.Time); !ok || d.Day() != 31 {
		t.Errorf("joined: got %#v", rows[0]["joined"])
	}

	_, rows, err = TextTable("people", []string{"name"}, records, false)
	if err != nil || rows != nil {
		t.Errorf("schema only: got rows=%v err=%v", rows, err)
	}
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, name, err := OpenSource(converters.File{Path: path})
	if err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	rc.Close()
	if name != "sales" {
		t.Errorf("got name %s, want sales", name)
	}

	if _, _, err := OpenSource(converters.File{Path: filepath.Join(dir, "missing.csv")}); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("missing file: got %v, want ErrInvalidResource", err)
	}
	if _, _, err := OpenSource(converters.Stream{}); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("empty stream: got %v, want ErrInvalidResource", err)
	}
	if _, _, err := OpenSource(converters.Connection{DSN: "x"}); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("connection: got %v, want ErrInvalidResource", err)
	}
}

func TestCreateDestination(t *testing.T) {
	var buf bytes.Buffer
	w, err := CreateDestination(converters.Stream{W: &buf})
	if err != nil {
		t.Fatalf("CreateDestination failed: %v", err)
	}
	io.WriteString(w, "hello")
	w.Close()
	if buf.String() != "hello" {
		t.Errorf("got %q, want hello", buf.String())
	}

	if _, err := CreateDestination(converters.Stream{}); !errors.Is(err, converters.ErrInvalidResource) {
		t.Errorf("got %v, want ErrInvalidResource", err)
	}
}
