// Package xlsx transcodes between the vendor's CSV payloads and .xlsx
// workbooks on disk.
package xlsx

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// WriteCSV parses data as UTF-8 comma-separated rows and writes them, in
// order, to the default sheet of a new workbook at path. Cells are
// written as text so values survive a read-back unchanged.
func WriteCSV(data []byte, path string) error {
	if !utf8.Valid(data) {
		return errors.New("payload is not valid UTF-8 text")
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // vendor rows are not guaranteed rectangular

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	row := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to parse CSV payload: %w", err)
		}
		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(record))
		for i, v := range record {
			cells[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// ReadRows returns every row of the workbook's first sheet as strings.
func ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
	}
	return rows, nil
}

// WriteRows writes header followed by rows to the default sheet of a new
// workbook at path.
func WriteRows(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	all := make([][]string, 0, len(rows)+1)
	all = append(all, header)
	all = append(all, rows...)

	for i, record := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(record))
		for j, v := range record {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
