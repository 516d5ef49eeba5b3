// Package common holds helpers shared by the stream converters.
package common

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/darianmavgo/tabconv/converters"
)

// OpenSource returns a reader for a File or Stream resource together with a base name
// usable as a table name. The caller closes the reader.
func OpenSource(res converters.Resource) (io.ReadCloser, string, error) {
	switch r := res.(type) {
	case converters.File:
		rc, err := r.Open()
		if err != nil {
			return nil, "", err
		}
		return rc, BaseName(r.Path), nil
	case *converters.File:
		if r == nil {
			break
		}
		return OpenSource(*r)
	case converters.Stream:
		if r.R == nil {
			return nil, "", fmt.Errorf("%w: stream has no reader", converters.ErrInvalidResource)
		}
		return io.NopCloser(r.R), BaseName(r.Name), nil
	case *converters.Stream:
		if r == nil {
			break
		}
		return OpenSource(*r)
	}
	return nil, "", fmt.Errorf("%w: %T cannot be read as a stream", converters.ErrInvalidResource, res)
}

// CreateDestination returns a writer for a File or Stream resource. The caller closes it;
// closing does not close a caller-supplied stream.
func CreateDestination(res converters.Resource) (io.WriteCloser, error) {
	switch r := res.(type) {
	case converters.File:
		return r.Create()
	case *converters.File:
		if r == nil {
			break
		}
		return r.Create()
	case converters.Stream:
		if r.W == nil {
			return nil, fmt.Errorf("%w: stream has no writer", converters.ErrInvalidResource)
		}
		return nopWriteCloser{r.W}, nil
	case *converters.Stream:
		if r == nil {
			break
		}
		return CreateDestination(*r)
	}
	return nil, fmt.Errorf("%w: %T cannot be written as a stream", converters.ErrInvalidResource, res)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// BaseName strips the directory and extension from a path: "/a/b/sales.csv" -> "sales".
func BaseName(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
