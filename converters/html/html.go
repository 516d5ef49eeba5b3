// Package html reads the tables of an HTML document. Each <table> becomes one table
// named after its id attribute, its caption, or its position.
package html

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Module registers the HTML reader.
var Module = converters.Module{Namespace: "converters/html", Register: func(r *converters.Registry) {
	r.RegisterReader(converters.FormatHTML, converters.KindStream, "html.Reader",
		func() converters.Reader { return &Reader{} })
}}

// Reader extracts tables from HTML. The first row of each table holds the column names.
type Reader struct {
	opts *converters.Options
}

var (
	_ converters.Reader       = (*Reader)(nil)
	_ converters.OptionsAware = (*Reader)(nil)
)

func (r *Reader) SetOptions(opts *converters.Options) { r.opts = opts }

type tableData struct {
	rawName string
	headers []string
	rows    [][]string
}

// Read implements converters.Reader.
func (r *Reader) Read(ctx context.Context, src converters.Resource, includeData bool) (*model.Metadata, error) {
	rc, _, err := common.OpenSource(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tables, err := parseHTML(bufio.NewReaderSize(rc, 65536))
	if err != nil {
		return nil, err
	}
	sanitize := r.opts != nil && r.opts.SanitizeNames

	rawNames := make([]string, len(tables))
	for i, t := range tables {
		if t.rawName != "" {
			rawNames[i] = t.rawName
		} else {
			rawNames[i] = fmt.Sprintf("table%d", i)
		}
	}
	names := uniqueNames(rawNames)
	if sanitize {
		names = sqlgen.TableNames(rawNames)
	}

	md := model.New(includeData)
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(t.headers) == 0 {
			continue
		}
		headers := common.HeaderNames(t.headers, sanitize)
		table, rows, err := common.TextTable(names[i], headers, t.rows, includeData)
		if err != nil {
			return nil, err
		}
		if err := md.AddTable(table); err != nil {
			return nil, err
		}
		for _, row := range rows {
			md.AddRow(table.Name, row)
		}
	}
	return md, nil
}

func uniqueNames(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, name := range raw {
		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s%d", name, n)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

func parseHTML(reader io.Reader) ([]tableData, error) {
	doc, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var tables []tableData
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, extractTable(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return tables, nil
}

func extractTable(n *html.Node) tableData {
	var name string
	for _, attr := range n.Attr {
		if attr.Key == "id" {
			name = strings.TrimSpace(attr.Val)
			break
		}
	}

	var rows [][]string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.DataAtom {
			case atom.Tr:
				rows = append(rows, extractRow(node))
				return
			case atom.Caption:
				if name == "" {
					name = extractText(node)
				}
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			// nested tables are visited on their own
			if c.Type == html.ElementNode && c.DataAtom == atom.Table {
				continue
			}
			visit(c)
		}
	}
	visit(n)

	if len(rows) == 0 {
		return tableData{rawName: name}
	}
	return tableData{rawName: name, headers: rows[0], rows: rows[1:]}
}

func extractRow(tr *html.Node) []string {
	var row []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			row = append(row, extractText(c))
		}
	}
	return row
}

func extractText(n *html.Node) string {
	var sb strings.Builder
	extractTextRecursive(n, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func extractTextRecursive(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextRecursive(c, sb)
	}
}
