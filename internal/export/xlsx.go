// Package export renders extracted form fields as XLSX downloads.
package export

import (
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/formhive/form-agent/internal/extractor"
)

const sheet = "Fields"

// FieldsXLSX returns a one-sheet workbook with a header row and one row per
// extracted field. form_type leads, then fields in their stored order.
func FieldsXLSX(fields extractor.FormFields, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(1, 1, "Field")
	write(2, 1, "Value")

	row := 2
	write(1, row, "Form Type")
	write(2, row, fields.FormType)
	row++

	for _, fld := range fields.Fields {
		write(1, row, fld.Label)
		write(2, row, cellValue(fld.Value))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"form_type", fields.FormType,
		"rows", row-1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func cellValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}
