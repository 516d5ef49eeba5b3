// Package xlsx reads and writes OOXML spreadsheets. Each sheet is one table whose
// first row holds the column names.
package xlsx

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/model"
)

// Module registers the XLSX reader and writer.
var Module = converters.Module{Namespace: "converters/xlsx", Register: register}

func register(r *converters.Registry) {
	r.RegisterReader(converters.FormatXLSX, converters.KindStream, "xlsx.Reader",
		func() converters.Reader { return &Reader{} })
	r.RegisterWriter(converters.FormatXLSX, converters.KindStream, "xlsx.Writer",
		func() converters.Writer { return &Writer{} })
}

// Reader turns every non-empty sheet of a workbook into a table.
type Reader struct {
	opts *converters.Options
}

var (
	_ converters.Reader       = (*Reader)(nil)
	_ converters.OptionsAware = (*Reader)(nil)
)

func (r *Reader) SetOptions(opts *converters.Options) { r.opts = opts }

// Read implements converters.Reader.
func (r *Reader) Read(ctx context.Context, src converters.Resource, includeData bool) (*model.Metadata, error) {
	rc, _, err := common.OpenSource(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb := &workbook{file: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}

	sanitize := r.opts != nil && r.opts.SanitizeNames
	sheets := f.GetSheetList()
	tableNames := sheets
	if sanitize {
		tableNames = sqlgen.TableNames(sheets)
	}

	md := model.New(includeData)
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, rows, err := wb.readSheet(sheet, tableNames[i], includeData, sanitize)
		if err != nil {
			return nil, err
		}
		if table == nil {
			continue
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

type cellKind int

const (
	cellEmpty cellKind = iota
	cellText
	cellInteger
	cellDecimal
	cellDate
)

type cellValue struct {
	kind cellKind
	text string
	num  float64
	date time.Time
}

type workbook struct {
	file       *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func (wb *workbook) readSheet(sheet, name string, includeData, sanitize bool) (*model.TableDefinition, []model.Row, error) {
	rows, err := wb.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil, nil
	}
	headers := common.HeaderNames(rows[0], sanitize)
	data := rows[1:]

	// classify every data cell once; column types need all of them
	cells := make([][]cellValue, len(data))
	for r, rec := range data {
		cells[r] = make([]cellValue, len(headers))
		for c := range headers {
			raw := ""
			if c < len(rec) {
				raw = rec[c]
			}
			cv, err := wb.classify(sheet, c+1, r+2, raw)
			if err != nil {
				return nil, nil, fmt.Errorf("sheet %s column %s: %w", sheet, headers[c], err)
			}
			cells[r][c] = cv
		}
	}

	table, err := model.NewTable(name)
	if err != nil {
		return nil, nil, err
	}
	for c, h := range headers {
		if err := table.Append(h, columnType(cells, c)); err != nil {
			return nil, nil, err
		}
	}
	if !includeData {
		return table, nil, nil
	}

	cols := table.Columns()
	out := make([]model.Row, 0, len(cells))
	for _, rec := range cells {
		row := make(model.Row, len(cols))
		for _, col := range cols {
			row[col.Name] = canonical(col.Type, rec[col.Index])
		}
		out = append(out, row)
	}
	return table, out, nil
}

func (wb *workbook) classify(sheet string, col, row int, raw string) (cellValue, error) {
	if raw == "" {
		return cellValue{kind: cellEmpty}, nil
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return cellValue{}, err
	}
	typ, err := wb.file.GetCellType(sheet, axis)
	if err != nil {
		return cellValue{}, fmt.Errorf("failed to read cell %s: %w", axis, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return cellValue{}, fmt.Errorf("%w: boolean cell %s", model.ErrUnsupportedMapping, axis)
	case excelize.CellTypeError:
		return cellValue{}, fmt.Errorf("%w: error cell %s (%s)", model.ErrUnsupportedMapping, axis, raw)
	case excelize.CellTypeDate:
		d, err := model.ParseDate(raw)
		if err != nil {
			return cellValue{}, fmt.Errorf("cell %s: %w", axis, err)
		}
		return cellValue{kind: cellDate, date: d}, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return cellValue{kind: cellText, text: raw}, nil
	}

	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return cellValue{kind: cellText, text: raw}, nil
	}
	if wb.dateStyled(sheet, axis) {
		d, err := excelize.ExcelDateToTime(num, wb.date1904)
		if err != nil {
			return cellValue{}, fmt.Errorf("cell %s: %w", axis, err)
		}
		return cellValue{kind: cellDate, date: d.Round(time.Millisecond)}, nil
	}
	if num == math.Trunc(num) && math.Abs(num) < 1<<53 {
		return cellValue{kind: cellInteger, num: num, text: raw}, nil
	}
	return cellValue{kind: cellDecimal, num: num, text: raw}, nil
}

func (wb *workbook) dateStyled(sheet, axis string) bool {
	id, err := wb.file.GetCellStyle(sheet, axis)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := wb.dateStyles[id]; ok {
		return v
	}
	isDate := false
	if style, err := wb.file.GetStyle(id); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = builtinDateFormat(style.NumFmt)
		}
	}
	wb.dateStyles[id] = isDate
	return isDate
}

// builtinDateFormat reports the built-in number format ids that render dates or times.
func builtinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format code contains date or time
// tokens outside quoted literals and bracketed sections such as [Red] or [$-409].
func isDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\':
			i++
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

func columnType(cells [][]cellValue, c int) model.ColumnType {
	var kinds [cellDate + 1]int
	for _, rec := range cells {
		kinds[rec[c].kind]++
	}
	numbers := kinds[cellInteger] + kinds[cellDecimal]
	switch {
	case kinds[cellText] > 0:
		return model.String
	case kinds[cellDate] > 0 && numbers > 0:
		return model.String
	case kinds[cellDate] > 0:
		return model.Date
	case kinds[cellDecimal] > 0:
		return model.DecimalNumber
	case kinds[cellInteger] > 0:
		return model.IntegerNumber
	}
	return model.String
}

func canonical(typ model.ColumnType, cv cellValue) any {
	if cv.kind == cellEmpty {
		return nil
	}
	switch typ {
	case model.Date:
		return cv.date
	case model.IntegerNumber:
		return int64(cv.num)
	case model.DecimalNumber:
		return cv.num
	}
	switch cv.kind {
	case cellDate:
		return cv.date.Format(model.DateLayout)
	case cellInteger, cellDecimal:
		return strconv.FormatFloat(cv.num, 'f', -1, 64)
	}
	return cv.text
}
