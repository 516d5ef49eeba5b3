package converters

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		qualifier string
		want      Format
		ok        bool
	}{
		{"/data/export.sqlite", FormatSQLite, true},
		{"jdbc:sqlite:/data/export.db", FormatSQLite, true},
		{"/data/Book1.XLSX", FormatXLSX, true},
		{"/data/macro.xlsm", FormatXLSX, true},
		{"/data/old.xls", FormatXLS, true},
		{"/data/calc.ods", FormatODS, true},
		{"/data/sales.csv", FormatCSV, true},
		{"/data/dump.json", FormatJSON, true},
		{"/data/page.htm", FormatHTML, true},
		{"/data/README.md", FormatMarkdown, true},
		{"/data/schema.sql", FormatSQL, true},
		{"/data/legacy.accdb", FormatAccess, true},
		{"jdbc:mysql://localhost:3306/db", FormatMySQL, true},
		{"jdbc:postgresql://localhost/db", FormatPostgreSQL, true},
		{"JDBC:Postgres://localhost/db", FormatPostgreSQL, true},
		{"jdbc:ucanaccess:///data/legacy.mdb", FormatAccess, true},
		{"jdbc:oracle:thin:@host", "", false},
		{"jdbc:sqlite", "", false},
		{"/data/readme", "", false},
		{"/data/notes.txt", "", false},
		{"relative/export.sqlite", "", false},
		{"", "", false},
	}

	var d Detector
	for _, tt := range tests {
		t.Run(tt.qualifier, func(t *testing.T) {
			got, ok := d.Detect(tt.qualifier)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Detect(%q) = (%s, %v), want (%s, %v)", tt.qualifier, got, ok, tt.want, tt.ok)
			}
			again, _ := d.Detect(tt.qualifier)
			if again != got {
				t.Errorf("Detect(%q) not idempotent: %s then %s", tt.qualifier, got, again)
			}
		})
	}
}

func TestDetectRequireExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	strict := Detector{RequireExisting: true}
	if got, ok := strict.Detect("book.xlsx"); !ok || got != FormatXLSX {
		t.Errorf("got (%s, %v), want (XLSX, true)", got, ok)
	}
	if _, ok := strict.Detect("missing.xlsx"); ok {
		t.Error("missing relative file should not be detected")
	}
	if _, ok := (Detector{}).Detect("book.xlsx"); ok {
		t.Error("relative path should need RequireExisting")
	}
}

func TestSplitConnection(t *testing.T) {
	f, dsn, ok := SplitConnection("jdbc:sqlite:/data/export.db")
	if !ok || f != FormatSQLite || dsn != "/data/export.db" {
		t.Errorf("got (%s, %s, %v)", f, dsn, ok)
	}
	f, dsn, ok = SplitConnection("jdbc:mysql:user:pass@tcp(localhost:3306)/db")
	if !ok || f != FormatMySQL || dsn != "user:pass@tcp(localhost:3306)/db" {
		t.Errorf("got (%s, %s, %v)", f, dsn, ok)
	}
	if _, _, ok := SplitConnection("/data/export.db"); ok {
		t.Error("path is not a connection string")
	}
}

func TestResourceFor(t *testing.T) {
	if got := ResourceFor("jdbc:sqlite:/tmp/a.db"); got != (Connection{DSN: "/tmp/a.db"}) {
		t.Errorf("got %#v", got)
	}
	if got := ResourceFor("/tmp/a.csv"); got != (File{Path: "/tmp/a.csv"}) {
		t.Errorf("got %#v", got)
	}
}
