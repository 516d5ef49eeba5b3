package dbsql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/darianmavgo/tabconv/converters"
)

// handle is an open database plus whatever must happen when the converter is done.
type handle struct {
	db      *sqlx.DB
	release func(commit bool) error
}

func (h *handle) close(commit bool) error {
	if h.release == nil {
		return nil
	}
	return h.release(commit)
}

// open resolves res to a database. Caller-owned handles are never closed. A stream is
// spooled through a temporary file for engines with a file form.
func (f Flavor) open(ctx context.Context, res converters.Resource, write, fresh bool) (*handle, error) {
	switch r := res.(type) {
	case converters.Database:
		if r.DB == nil {
			return nil, fmt.Errorf("%w: nil database handle", converters.ErrInvalidResource)
		}
		driver := r.Driver
		if driver == "" {
			driver = f.Driver
		}
		db := sqlx.NewDb(r.DB, driver)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", converters.ErrInvalidResource, err)
		}
		return &handle{db: db}, nil
	case *converters.Database:
		if r != nil {
			return f.open(ctx, *r, write, fresh)
		}
	case converters.Connection:
		if r.DSN == "" {
			return nil, fmt.Errorf("%w: empty connection string", converters.ErrInvalidResource)
		}
		dsn := r.DSN
		if f.DSN != nil {
			var err error
			if dsn, err = f.DSN(dsn); err != nil {
				return nil, fmt.Errorf("%w: %v", converters.ErrInvalidResource, err)
			}
		}
		// file engines create a missing database on open
		if !write && f.FileDSN != nil {
			if path := localPath(dsn); path != "" {
				if _, err := os.Stat(path); err != nil {
					return nil, fmt.Errorf("%w: %v", converters.ErrInvalidResource, err)
				}
			}
		}
		return f.connect(ctx, dsn)
	case *converters.Connection:
		if r != nil {
			return f.open(ctx, *r, write, fresh)
		}
	case converters.File:
		if f.FileDSN == nil {
			break
		}
		if r.Path == "" {
			return nil, fmt.Errorf("%w: empty file path", converters.ErrInvalidResource)
		}
		if !write {
			if _, err := os.Stat(r.Path); err != nil {
				return nil, fmt.Errorf("%w: %v", converters.ErrInvalidResource, err)
			}
		} else if fresh {
			if err := os.Remove(r.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to replace %s: %w", r.Path, err)
			}
		}
		return f.connect(ctx, f.FileDSN(r.Path))
	case *converters.File:
		if r != nil {
			return f.open(ctx, *r, write, fresh)
		}
	case converters.Stream:
		if f.FileDSN == nil {
			break
		}
		return f.spool(ctx, r, write)
	case *converters.Stream:
		if r != nil {
			return f.open(ctx, *r, write, fresh)
		}
	}
	return nil, fmt.Errorf("%w: %T is not a %s database", converters.ErrInvalidResource, res, f.Format)
}

func (f Flavor) connect(ctx context.Context, dsn string) (*handle, error) {
	db, err := sqlx.Open(f.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", converters.ErrInvalidResource, err)
	}
	if f.Setup != nil {
		if err := f.Setup(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &handle{db: db, release: func(bool) error { return db.Close() }}, nil
}

// spool backs a stream with a temporary database file: a reader copies the stream in
// before opening; a writer copies the finished file out when the write succeeds.
func (f Flavor) spool(ctx context.Context, s converters.Stream, write bool) (*handle, error) {
	if (write && s.W == nil) || (!write && s.R == nil) {
		return nil, fmt.Errorf("%w: stream has no %s", converters.ErrInvalidResource, direction(write))
	}
	tmp, err := os.CreateTemp("", "tabconv-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	if !write {
		if _, err := io.Copy(tmp, s.R); err != nil {
			tmp.Close()
			os.Remove(path)
			return nil, fmt.Errorf("failed to copy stream to temp file: %w", err)
		}
	}
	tmp.Close()

	h, err := f.connect(ctx, f.FileDSN(path))
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	closeDB := h.release
	h.release = func(commit bool) error {
		defer os.Remove(path)
		if err := closeDB(commit); err != nil {
			return err
		}
		if !write || !commit {
			return nil
		}
		in, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open temp file for reading: %w", err)
		}
		defer in.Close()
		if _, err := io.Copy(s.W, in); err != nil {
			return fmt.Errorf("failed to write to output: %w", err)
		}
		return nil
	}
	return h, nil
}

// localPath returns the file behind a file engine DSN such as "/data/a.db" or
// "file:/data/a.db?_pragma=x". In-memory databases have no file.
func localPath(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}

func direction(write bool) string {
	if write {
		return "writer"
	}
	return "reader"
}
