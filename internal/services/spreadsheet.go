package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Sheet1"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// convertXlsxToCsv writes one {base}_{n}.csv per worksheet. Every file is
// flushed and closed before the accumulated paths are returned.
func (cv *Converter) convertXlsxToCsv(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	wb, err := excelize.OpenFile(inputPath)
	if err != nil {
		return nil, &ConversionError{Engine: "spreadsheet", Err: err}
	}
	defer wb.Close()

	base := baseName(inputPath)
	var outputs []string
	for i, sheet := range wb.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, &ConversionError{Engine: "spreadsheet", Err: err}
		}

		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, &ConversionError{Engine: "spreadsheet", Err: fmt.Errorf("sheet %q: %w", sheet, err)}
		}

		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%d.csv", base, i+1))
		if err := writeQuotedCSV(outPath, rows); err != nil {
			return nil, err
		}
		outputs = append(outputs, outPath)
	}
	return outputs, nil
}

// writeQuotedCSV emits RFC 4180 records with every non-empty field quoted.
// Rows with no cells are skipped and records are separated by "\n" with no
// trailing newline.
func writeQuotedCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return &FilesystemError{Op: "create", Path: path, Err: err}
	}

	w := bufio.NewWriter(f)
	first := true
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if !first {
			w.WriteByte('\n')
		}
		first = false
		for j, field := range row {
			if j > 0 {
				w.WriteByte(',')
			}
			if field == "" {
				continue
			}
			w.WriteByte('"')
			w.WriteString(strings.ReplaceAll(field, `"`, `""`))
			w.WriteByte('"')
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: path, Err: err}
	}
	return nil
}

func (cv *Converter) convertCsvToXlsx(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	records, err := readCSV(inputPath)
	if err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	for i, record := range records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &ConversionError{Engine: "spreadsheet", Err: err}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, &ConversionError{Engine: "spreadsheet", Err: err}
		}
		if err := wb.SetSheetRow(defaultSheetName, cell, &record); err != nil {
			return nil, &ConversionError{Engine: "spreadsheet", Err: fmt.Errorf("row %d: %w", i+1, err)}
		}
	}

	outPath := filepath.Join(outputDir, baseName(inputPath)+".xlsx")
	if err := wb.SaveAs(outPath); err != nil {
		return nil, &ConversionError{Engine: "spreadsheet", Err: err}
	}
	return []string{outPath}, nil
}

// readCSV parses RFC 4180 input: quoted commas and line breaks are kept,
// rows may have differing lengths, and a leading UTF-8 BOM is ignored.
func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FilesystemError{Op: "read", Path: path, Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ConversionError{Engine: "csv", Err: err}
		}
		records = append(records, record)
	}
	return records, nil
}
