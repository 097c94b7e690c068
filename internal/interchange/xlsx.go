package interchange

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readSheetRows returns every row of sheet, or of the first sheet when sheet
// is empty. Cells are read raw so numeric text is not reformatted.
func readSheetRows(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("open xlsx: no sheets found")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// ReadHeaders lists the trimmed cells of the first row of sheet. An empty
// sheet name selects the first sheet.
func ReadHeaders(r io.Reader, sheet string) ([]string, error) {
	rows, err := readSheetRows(r, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}

	out := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		out[i] = strings.TrimSpace(h)
	}
	return out, nil
}

// writeWorkbook writes a single-sheet workbook with header in row 1.
// Every value is stored as text.
func writeWorkbook(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	put := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := put(1, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := put(i+2, r); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
