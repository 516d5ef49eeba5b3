// Package markdown reads the pipe tables and bullet lists of a Markdown document.
// A table is named after the nearest preceding heading or anchor; a list becomes a
// two-column key/value table.
package markdown

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Module registers the Markdown reader.
var Module = converters.Module{Namespace: "converters/markdown", Register: func(r *converters.Registry) {
	r.RegisterReader(converters.FormatMarkdown, converters.KindStream, "markdown.Reader",
		func() converters.Reader { return &Reader{} })
}}

// Reader extracts tables from Markdown.
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

	tables, err := parseMarkdown(rc)
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

var (
	headerRegex    = regexp.MustCompile(`^#+\s+(.*?)\s*#*$`)
	anchorRegex    = regexp.MustCompile(`<a\s+[^>]*(?:id|name)="([^"]+)"[^>]*>`)
	listRegex      = regexp.MustCompile(`^(\s*)([*+\-]|\d+\.)\s+(.*)$`)
	tableRegex     = regexp.MustCompile(`^\s*\|`)
	separatorRegex = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
)

func parseMarkdown(r io.Reader) ([]tableData, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Markdown: %w", err)
	}

	var tables []tableData
	var currentName string
	fenced := false
	for i := 0; i < len(lines); {
		line := lines[i]
		trimLine := strings.TrimSpace(line)

		if strings.HasPrefix(trimLine, "```") || strings.HasPrefix(trimLine, "~~~") {
			fenced = !fenced
			i++
			continue
		}
		if fenced {
			i++
			continue
		}

		if match := headerRegex.FindStringSubmatch(trimLine); match != nil {
			currentName = match[1]
			i++
			continue
		}
		if match := anchorRegex.FindStringSubmatch(trimLine); match != nil {
			currentName = strings.TrimSpace(match[1])
			i++
			continue
		}

		// a pipe row only starts a table when a separator row follows
		if tableRegex.MatchString(trimLine) && i+1 < len(lines) && separatorRegex.MatchString(lines[i+1]) {
			table, consumed := parseTable(lines[i:], currentName)
			tables = append(tables, table)
			i += consumed
			currentName = ""
			continue
		}

		if listRegex.MatchString(line) {
			table, consumed := parseList(lines[i:], currentName)
			tables = append(tables, table)
			i += consumed
			currentName = ""
			continue
		}
		i++
	}
	return tables, nil
}

func splitRow(l string) []string {
	l = strings.TrimSpace(l)
	l = strings.TrimPrefix(l, "|")
	l = strings.TrimSuffix(l, "|")
	// escaped pipes belong to the cell
	l = strings.ReplaceAll(l, `\|`, "\x00")
	parts := strings.Split(l, "|")
	for k, v := range parts {
		parts[k] = strings.ReplaceAll(strings.TrimSpace(v), "\x00", "|")
	}
	return parts
}

// parseTable reads a header row, its separator and the pipe rows that follow. It
// returns the table and the number of lines consumed.
func parseTable(lines []string, name string) (tableData, int) {
	headers := splitRow(lines[0])
	consumed := 2

	var rows [][]string
	for _, line := range lines[2:] {
		if !strings.Contains(line, "|") {
			break
		}
		rows = append(rows, splitRow(line))
		consumed++
	}
	return tableData{rawName: name, headers: headers, rows: rows}, consumed
}

type listItem struct {
	key   string
	value strings.Builder
}

// parseList turns a bullet or numbered list into key/value rows: the key is the text
// of a top-level item and the value everything nested under it.
func parseList(lines []string, name string) (tableData, int) {
	var items []*listItem
	rootIndent := ""
	consumed := 0

	for j, line := range lines {
		if strings.TrimSpace(line) == "" {
			// one blank line continues the list when an item or nested content follows
			consumed++
			if j+1 >= len(lines) || !continuesList(lines[j+1]) {
				break
			}
			continue
		}

		match := listRegex.FindStringSubmatch(line)
		switch {
		case match != nil && (len(items) == 0 || match[1] == rootIndent):
			if len(items) == 0 {
				rootIndent = match[1]
			}
			items = append(items, &listItem{key: strings.TrimSpace(match[3])})
		case len(items) > 0 && (match != nil || strings.HasPrefix(line, rootIndent+" ") || strings.HasPrefix(line, "\t")):
			last := items[len(items)-1]
			last.value.WriteString(strings.TrimSpace(line))
			last.value.WriteByte('\n')
		default:
			return listTable(name, items), consumed
		}
		consumed++
	}
	return listTable(name, items), consumed
}

func continuesList(next string) bool {
	if strings.TrimSpace(next) == "" || tableRegex.MatchString(next) || headerRegex.MatchString(strings.TrimSpace(next)) {
		return false
	}
	return listRegex.MatchString(next) || strings.HasPrefix(next, "  ") || strings.HasPrefix(next, "\t")
}

func listTable(name string, items []*listItem) tableData {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.key, strings.TrimSpace(item.value.String())}
	}
	return tableData{rawName: name, headers: []string{"key", "value"}, rows: rows}
}
