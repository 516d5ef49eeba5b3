package converters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/darianmavgo/tabconv/model"
)

var (
	// ErrInvalidResource is returned for a nil, closed or missing source or destination.
	ErrInvalidResource = errors.New("invalid resource")
	// ErrInvalidMetadata is returned by writers for a structurally incomplete envelope.
	ErrInvalidMetadata = model.ErrInvalidMetadata
	// ErrUnsupportedMapping is returned when a native type has no canonical column type.
	ErrUnsupportedMapping = model.ErrUnsupportedMapping
	// ErrNoConverter is returned by the engine when resolution finds nothing.
	ErrNoConverter = errors.New("no converter available")
	// ErrUnknownFormat is returned when a format is neither given nor detectable.
	ErrUnknownFormat = errors.New("unknown format")
)

// Format is the tag a converter declares, e.g. "XLSX" or "SQLITE".
type Format string

const (
	FormatXLSX       Format = "XLSX"
	FormatXLS        Format = "XLS"
	FormatODS        Format = "ODS"
	FormatCSV        Format = "CSV"
	FormatJSON       Format = "JSON"
	FormatHTML       Format = "HTML"
	FormatMarkdown   Format = "MARKDOWN"
	FormatSQL        Format = "SQL"
	FormatSQLite     Format = "SQLITE"
	FormatMySQL      Format = "MYSQL"
	FormatPostgreSQL Format = "POSTGRESQL"
	FormatAccess     Format = "ACCESS"
)

// Normalize returns the canonical (upper case, trimmed) spelling of a tag.
func (f Format) Normalize() Format {
	return Format(strings.ToUpper(strings.TrimSpace(string(f))))
}

// Kind is the kind of handle a converter operates on.
type Kind string

const (
	KindFile       Kind = "file"
	KindStream     Kind = "stream"
	KindConnection Kind = "connection"
	KindDatabase   Kind = "database"
)

// Resource is a source or destination handle. Kinds lists the kinds the resource can
// serve as, most specific first.
type Resource interface {
	Kinds() []Kind
}

// File is a filesystem path. It can also be consumed as a stream.
type File struct {
	Path string
}

func (File) Kinds() []Kind { return []Kind{KindFile, KindStream} }

// Open opens the file for reading.
func (f File) Open() (io.ReadCloser, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidResource)
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	return file, nil
}

// Create truncates or creates the file for writing.
func (f File) Create() (io.WriteCloser, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidResource)
	}
	file, err := os.Create(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	return file, nil
}

// Stream wraps an already open reader or writer. Name, when set, is used to derive
// table names.
type Stream struct {
	R    io.Reader
	W    io.Writer
	Name string
}

func (Stream) Kinds() []Kind { return []Kind{KindStream} }

// Connection is an unopened database connection string, without the "jdbc:<format>:" prefix.
type Connection struct {
	DSN string
}

func (Connection) Kinds() []Kind { return []Kind{KindConnection} }

// Database is an open database handle.
type Database struct {
	DB     *sql.DB
	Driver string
}

func (Database) Kinds() []Kind { return []Kind{KindDatabase} }

// WriteType selects which parts of the envelope a writer emits.
type WriteType int

const (
	Both WriteType = iota
	SchemaOnly
	DataOnly
)

func (w WriteType) String() string {
	switch w {
	case SchemaOnly:
		return "SCHEMA_ONLY"
	case DataOnly:
		return "DATA_ONLY"
	}
	return "BOTH"
}

// Schema reports whether table structure is written.
func (w WriteType) Schema() bool { return w != DataOnly }

// Data reports whether rows are written.
func (w WriteType) Data() bool { return w != SchemaOnly }

// ParseWriteType parses "BOTH", "SCHEMA_ONLY" or "DATA_ONLY" (also "schema", "data").
func ParseWriteType(s string) (WriteType, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "", "BOTH":
		return Both, nil
	case "SCHEMA_ONLY", "SCHEMA":
		return SchemaOnly, nil
	case "DATA_ONLY", "DATA":
		return DataOnly, nil
	}
	return Both, fmt.Errorf("unknown write type %q", s)
}

// Reader turns a source into the canonical model. With includeData false only the
// structure is populated.
type Reader interface {
	Read(ctx context.Context, src Resource, includeData bool) (*model.Metadata, error)
}

// Writer emits the canonical model into a destination.
type Writer interface {
	Write(ctx context.Context, dst Resource, md *model.Metadata, wt WriteType) error
}

// OptionsAware converters receive the process-wide options when instantiated.
// Converters must treat the options as read-only.
type OptionsAware interface {
	SetOptions(opts *Options)
}

// LoggerAware converters receive the registry logger when instantiated.
type LoggerAware interface {
	SetLogger(l *zap.Logger)
}

// Options is the shared, read-only configuration handed to option-aware converters.
type Options struct {
	// Namespaces restricts discovery to modules under these roots.
	Namespaces []string
	// TableName names the single table of formats that carry one (CSV).
	TableName string
	// Delimiter for CSV; zero means detect.
	Delimiter rune
	// SanitizeNames rewrites sheet and header names into compliant SQL identifiers.
	SanitizeNames bool
	// BatchSize is the number of rows per transaction for database writers.
	BatchSize int
	// DecimalType overrides the SQL type of DECIMAL_NUMBER columns.
	DecimalType string
	// Dialect selects the SQL dialect of the script writer.
	Dialect string
	// DateLayout is the textual date layout written by text formats.
	DateLayout string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() *Options {
	return &Options{
		Namespaces: []string{"converters/"},
		BatchSize:  1000,
		Dialect:    "sqlite",
		DateLayout: model.DateLayout,
	}
}

// ConversionError annotates a failure with the step and format involved.
type ConversionError struct {
	Op     string
	Format Format
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
