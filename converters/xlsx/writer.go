package xlsx

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/common"
	"github.com/darianmavgo/tabconv/model"
)

// DateNumFmt is the number format applied to DATE columns.
const DateNumFmt = "yyyy-mm-dd hh:mm:ss.000"

const defaultSheet = "Sheet1"

// Writer emits one sheet per table, in table name order. The header row is always
// written so that data-only output stays readable; SCHEMA_ONLY writes nothing else.
type Writer struct{}

var _ converters.Writer = (*Writer)(nil)

// Write implements converters.Writer.
func (w *Writer) Write(ctx context.Context, dst converters.Resource, md *model.Metadata, wt converters.WriteType) error {
	if err := md.Validate(); err != nil {
		return err
	}
	out, err := common.CreateDestination(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: stringPtr(DateNumFmt)})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	for i, name := range md.TableNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		var rows []model.Row
		if wt.Data() && md.HasData {
			rows = md.Data[name]
		}
		if err := writeSheet(f, md.Tables[name], rows, dateStyle); err != nil {
			return err
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return out.Close()
}

func writeSheet(f *excelize.File, t *model.TableDefinition, rows []model.Row, dateStyle int) error {
	cols := t.Columns()
	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col.Name
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", t.Name, err)
	}

	for r, row := range rows {
		values := make([]any, len(cols))
		for i, col := range cols {
			values[i] = row[col.Name]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r+1, t.Name, err)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	for _, col := range cols {
		if col.Type != model.Date {
			continue
		}
		top, err := excelize.CoordinatesToCellName(col.Index+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(col.Index+1, len(rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(t.Name, top, bottom, dateStyle); err != nil {
			return fmt.Errorf("failed to style column %s of %s: %w", col.Name, t.Name, err)
		}
	}
	return nil
}

func stringPtr(s string) *string { return &s }
