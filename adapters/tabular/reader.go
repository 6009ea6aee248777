package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"cdibeta/domain/core"
)

// DataReader loads the CDI dataset from delimited text or Excel files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader that handles both delimited text and
// Excel files, chosen by extension.
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" {
		fileType = "xlsx"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// Read loads the dataset, validates the fixed column schema, and coerces
// the age-range column to a categorical type.
func (r *DataReader) Read() (*Table, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, core.NewLoadError(r.filePath, err)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		rows, err = r.readDelimitedRows()
	}
	if err != nil {
		return nil, core.NewLoadError(r.filePath, err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyDataset, r.filePath)
	}

	table, err := buildTable(rows[0], rows[1:])
	if err != nil {
		return nil, err
	}
	for _, name := range CategoricalColumns {
		table.Coerce(name)
	}
	return table, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readDelimitedRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Sniff the delimiter from the header line: tab-delimited exports
	// are common for this dataset alongside plain CSV.
	br := bufio.NewReader(file)
	header, err := br.ReadString('\n')
	if err != nil && header == "" {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	comma := ','
	if strings.Contains(header, "\t") {
		comma = '\t'
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited data: %w", err)
	}
	return records, nil
}

// buildTable converts raw rows into typed columns under the fixed schema
func buildTable(header []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	for _, name := range RequiredColumns() {
		if _, ok := index[name]; !ok {
			return nil, core.NewMissingColumnError(name)
		}
	}

	table := NewTable(len(rows))

	cell := func(row []string, col int) string {
		if col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	for _, name := range NumericColumns {
		col := index[name]
		values := make([]float64, len(rows))
		for i, row := range rows {
			values[i] = parseNumeric(cell(row, col))
		}
		table.SetNumeric(name, values)
	}

	for _, name := range LabelColumns {
		col := index[name]
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = parseLabel(cell(row, col))
		}
		table.SetLabels(name, values)
	}

	return table, nil
}

// parseNumeric maps empty cells, NA markers, and unparseable values to NaN
func parseNumeric(raw string) float64 {
	if raw == "" || raw == "NA" || raw == "NaN" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseLabel normalizes missing label markers to the empty string
func parseLabel(raw string) string {
	if raw == "NA" {
		return ""
	}
	return raw
}
