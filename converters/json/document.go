// Package json reads and writes tables as JSON. The writer emits a self-describing
// document that keeps column types and indexes:
//
//	{"tables":[{"name":"t","columns":[{"name":"a","type":"STRING"}],"indexes":[],"rows":[{"a":"x"}]}]}
//
// The reader accepts that document, a bare array of objects (one table named
// jsontb0) or an object whose array members are tables.
package json

import (
	gojson "github.com/goccy/go-json"
)

// ArrayTable names the table read from a bare top-level array.
const ArrayTable = "jsontb0"

type document struct {
	Tables []tableDoc `json:"tables"`
}

type tableDoc struct {
	Name    string           `json:"name"`
	Columns []columnDoc      `json:"columns"`
	Indexes []indexDoc       `json:"indexes,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

type columnDoc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type indexDoc struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// isDocument reports whether a decoded top-level object looks like the envelope
// document rather than a set of named arrays.
func isDocument(top map[string]gojson.RawMessage) bool {
	raw, ok := top["tables"]
	if !ok || len(top) != 1 {
		return false
	}
	var shape []struct {
		Name    *string           `json:"name"`
		Columns gojson.RawMessage `json:"columns"`
	}
	if err := gojson.Unmarshal(raw, &shape); err != nil {
		return false
	}
	for _, t := range shape {
		if t.Name == nil || t.Columns == nil {
			return false
		}
	}
	return true
}
