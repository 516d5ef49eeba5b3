package converters

import (
	"os"
	"path/filepath"
	"strings"
)

// ConnectionPrefix marks a qualifier as a connection string, e.g. "jdbc:sqlite:/data/x.db".
const ConnectionPrefix = "jdbc:"

var extensionFormats = map[string]Format{
	".xlsx":     FormatXLSX,
	".xlsm":     FormatXLSX,
	".xls":      FormatXLS,
	".ods":      FormatODS,
	".csv":      FormatCSV,
	".json":     FormatJSON,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".sql":      FormatSQL,
	".sqlite":   FormatSQLite,
	".sqlite3":  FormatSQLite,
	".db":       FormatSQLite,
	".mdb":      FormatAccess,
	".accdb":    FormatAccess,
}

var protocolFormats = map[string]Format{
	"sqlite":     FormatSQLite,
	"mysql":      FormatMySQL,
	"postgresql": FormatPostgreSQL,
	"postgres":   FormatPostgreSQL,
	"ucanaccess": FormatAccess,
}

// Detector maps a qualifier string (path or connection string) to a format tag.
type Detector struct {
	// RequireExisting also accepts relative paths, provided they name an existing
	// regular file.
	RequireExisting bool
}

// Detect returns the format of qualifier. It is pure apart from the optional stat.
func (d Detector) Detect(qualifier string) (Format, bool) {
	if IsConnection(qualifier) {
		f, _, ok := SplitConnection(qualifier)
		return f, ok
	}
	if !d.isPath(qualifier) {
		return "", false
	}
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(qualifier))]
	return f, ok
}

func (d Detector) isPath(qualifier string) bool {
	if qualifier == "" {
		return false
	}
	if strings.HasPrefix(qualifier, string(os.PathSeparator)) {
		return true
	}
	if !d.RequireExisting {
		return false
	}
	info, err := os.Stat(qualifier)
	return err == nil && info.Mode().IsRegular()
}

// IsConnection reports whether qualifier carries the connection-string prefix.
func IsConnection(qualifier string) bool {
	return len(qualifier) > len(ConnectionPrefix) &&
		strings.EqualFold(qualifier[:len(ConnectionPrefix)], ConnectionPrefix)
}

// SplitConnection splits "jdbc:<protocol>:<dsn>" into the protocol's format and the
// driver DSN. The protocol is the token between the first and second ':'.
func SplitConnection(qualifier string) (Format, string, bool) {
	if !IsConnection(qualifier) {
		return "", "", false
	}
	rest := qualifier[len(ConnectionPrefix):]
	protocol, dsn, found := strings.Cut(rest, ":")
	if !found {
		return "", "", false
	}
	f, ok := protocolFormats[strings.ToLower(protocol)]
	if !ok {
		return "", "", false
	}
	return f, dsn, true
}
