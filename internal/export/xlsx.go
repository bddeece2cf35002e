package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"splitroom/internal/logger"
)

// maxColWidth caps auto-sized column widths.
const maxColWidth = 60

// XLSX renders tables as one workbook, one sheet per table, in order.
func XLSX(tables []Table) ([]byte, error) {
	const op = "XLSX"

	if len(tables) == 0 {
		return nil, fmt.Errorf("%s: no tables", op)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: header style: %w", op, err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return nil, fmt.Errorf("%s: rename sheet: %w", op, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return nil, fmt.Errorf("%s: new sheet %q: %w", op, t.Name, err)
		}
		if err := writeSheet(f, t, bold); err != nil {
			return nil, fmt.Errorf("%s: sheet %q: %w", op, t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("%s: write: %w", op, err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX renders tables and writes the workbook to path.
func WriteXLSX(path string, tables []Table) error {
	data, err := XLSX(tables)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log := logger.WithComponent("export")
	log.Info().
		Str("path", path).
		Int("sheets", len(tables)).
		Msg("workbook written")
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}

	if err := f.SetSheetRow(t.Name, "A1", &t.Headers); err != nil {
		return err
	}
	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
		for c, v := range row {
			if c < len(widths) {
				widths[c] = max(widths[c], len(fmt.Sprint(v)))
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Name, "A1", last, headerStyle); err != nil {
		return err
	}
	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.Name, col, col, float64(min(w+2, maxColWidth))); err != nil {
			return err
		}
	}
	return nil
}
