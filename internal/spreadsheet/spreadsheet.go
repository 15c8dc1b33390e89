// Package spreadsheet reads and writes the tabular files used for lead
// import and export. xlsx goes through excelize, csv through encoding/csv.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned when a workbook has no worksheet
var ErrNoSheet = errors.New("no sheet found")

// Row is one data row keyed by header name. Number is the 1-based row
// number in the sheet, header row included.
type Row struct {
	Number int
	Values map[string]any
}

// ReadFile parses the first sheet of path. Files ending in .csv are read as
// CSV, everything else as xlsx. Blank rows are skipped.
func ReadFile(path string) ([]Row, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

// ReadXLSX parses the first sheet of an xlsx stream
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) ([]Row, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return toRows(records), nil
}

// ReadCSV parses CSV data whose first record is the header
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return toRows(records), nil
}

func toRows(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for i, record := range records[1:] {
		values := make(map[string]any, len(headers))
		blank := true
		for col, cell := range record {
			if col >= len(headers) || headers[col] == "" {
				continue
			}
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
			values[headers[col]] = cell
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Number: i + 2, Values: values})
	}
	return rows
}

// EnsureTemplate writes a header-only workbook to path unless a file
// already exists there. It reports whether a file was created.
func EnsureTemplate(path, sheet string, headers []string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}

	f, err := newWorkbook(sheet, headers, nil)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return false, fmt.Errorf("failed to save template: %w", err)
	}
	return true, nil
}

// WriteWorkbook writes a single-sheet workbook with a header row followed by rows
func WriteWorkbook(w io.Writer, sheet string, headers []string, rows [][]any) error {
	f, err := newWorkbook(sheet, headers, rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func newWorkbook(sheet string, headers []string, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return f, nil
}
