package tabular

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"cdibeta/domain/core"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func header(sep string) string {
	return strings.Join(RequiredColumns(), sep)
}

func row(sep string, numeric []string, labels []string) string {
	return strings.Join(append(append([]string{}, numeric...), labels...), sep)
}

func TestReadCSV(t *testing.T) {
	content := header(",") + "\n" +
		row(",", []string{"42.5", "0.61", "15.2", "463", "120"}, []string{"cdi_form", "F", "lab01", "lab01-s001", "nae", "12-18"}) + "\n" +
		row(",", []string{"NA", "0.55", "18.0", "548", ""}, []string{"interview", "M", "lab02", "lab02-s001", "NA", "18-24"}) + "\n"

	path := writeTemp(t, "cdi.csv", content)
	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if got := table.Numeric[ColDailyPercentile][0]; got != 42.5 {
		t.Errorf("percentile[0] = %g, want 42.5", got)
	}
	if !math.IsNaN(table.Numeric[ColDailyPercentile][1]) {
		t.Error("NA cell should parse to NaN")
	}
	if !math.IsNaN(table.Numeric[ColVocabNWords][1]) {
		t.Error("empty numeric cell should parse to NaN")
	}
	if table.Labels[ColNAE][1] != "" {
		t.Error("NA label should normalize to the empty string")
	}
	if !table.IsMissing(ColNAE, 1) {
		t.Error("normalized NA label should count as missing")
	}
}

func TestReadTSVDelimiterSniffing(t *testing.T) {
	content := header("\t") + "\n" +
		row("\t", []string{"42.5", "0.61", "15.2", "463", "120"}, []string{"cdi_form", "F", "lab01", "lab01-s001", "nae", "12-18"}) + "\n"

	path := writeTemp(t, "cdi.tsv", content)
	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("rows = %d, want 1", table.Len())
	}
	if got := table.Labels[ColLab][0]; got != "lab01" {
		t.Errorf("labid[0] = %q, want lab01", got)
	}
}

func TestReadCoercesAgeRangeLevels(t *testing.T) {
	content := header(",") + "\n" +
		row(",", []string{"40", "0.6", "15", "460", "100"}, []string{"cdi_form", "F", "lab01", "s1", "nae", "18-24"}) + "\n" +
		row(",", []string{"50", "0.5", "13", "400", "90"}, []string{"cdi_form", "M", "lab01", "s2", "nae", "12-18"}) + "\n" +
		row(",", []string{"60", "0.4", "19", "580", "150"}, []string{"cdi_form", "F", "lab01", "s3", "nae", "18-24"}) + "\n"

	path := writeTemp(t, "cdi.csv", content)
	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	levels := table.Levels[ColAgeRange]
	// First-observed order decides the reference level downstream.
	if len(levels) != 2 || levels[0] != "18-24" || levels[1] != "12-18" {
		t.Errorf("age range levels = %v, want [18-24 12-18]", levels)
	}
}

func TestReadMissingColumn(t *testing.T) {
	cols := RequiredColumns()
	partial := strings.Join(cols[1:], ",") // drop daily_percentile
	content := partial + "\n" + strings.Repeat("x,", len(cols)-2) + "x\n"

	path := writeTemp(t, "bad.csv", content)
	_, err := NewDataReader(path).Read()
	if !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !core.IsLoadError(err) {
		t.Error("missing column should classify as a load error")
	}
}

func TestReadHeaderOnly(t *testing.T) {
	path := writeTemp(t, "empty.csv", header(",")+"\n")
	_, err := NewDataReader(path).Read()
	if !errors.Is(err, core.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestReadNonexistentFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv")).Read()
	if !errors.Is(err, core.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestReadExcelWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cols := RequiredColumns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("writing header: %v", err)
	}

	rows := [][]interface{}{
		{42.5, 0.61, 15.2, 463, 120, "cdi_form", "F", "lab01", "lab01-s001", "nae", "12-18"},
		{"NA", 0.55, 18.0, 548, 95, "interview", "M", "lab02", "lab02-s001", "non-nae", "18-24"},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			t.Fatalf("writing row %d: %v", i, err)
		}
	}

	path := filepath.Join(t.TempDir(), "cdi.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}

	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if got := table.Numeric[ColDailyPercentile][0]; got != 42.5 {
		t.Errorf("percentile[0] = %g, want 42.5", got)
	}
	if !math.IsNaN(table.Numeric[ColDailyPercentile][1]) {
		t.Error("NA cell in the workbook should parse to NaN")
	}
	if got := table.Labels[ColSubject][1]; got != "lab02-s001" {
		t.Errorf("subject[1] = %q, want lab02-s001", got)
	}
	if levels := table.Levels[ColAgeRange]; len(levels) != 2 {
		t.Errorf("age range levels = %v, want 2", levels)
	}
}

func TestNewDataReaderDetectsExcel(t *testing.T) {
	r := NewDataReader("/data/CDI.xlsx")
	if r.fileType != "xlsx" {
		t.Errorf("fileType = %q, want xlsx", r.fileType)
	}
	r = NewDataReader("/data/cdi.csv")
	if r.fileType != "csv" {
		t.Errorf("fileType = %q, want csv", r.fileType)
	}
}
