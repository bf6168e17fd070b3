package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"3tcapital/goglosas/internal/core/glosas"
)

// Adapter reads supplier/homologation files and writes output workbooks.
// It implements glosas.GridReader and glosas.WorkbookWriter.
type Adapter struct{}

// New creates the file adapter.
func New() *Adapter {
	return &Adapter{}
}

// ReadGrid loads the raw cell grid of the first sheet of an .xlsx, .xls or
// .csv file, with no header assumption. Unknown extensions return
// glosas.ErrUnsupportedFormat.
func (a *Adapter) ReadGrid(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", glosas.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", path, err)
	}
	return rows, nil
}

func readXLS(path string) ([][]string, error) {
	workbook, err := xls.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook %s: %w", path, err)
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("read sheet of %s: %w", path, err)
	}

	var grid [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // supplier files have ragged rows
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	return records, nil
}

// WriteWorkbook writes the given sheets to an .xlsx file, creating parent
// directories as needed. The first sheet replaces the default "Sheet1".
func (a *Adapter) WriteWorkbook(path string, sheets []glosas.SheetData) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write to %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
			}
		}

		for r, cells := range sheet.Cells {
			addr, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return fmt.Errorf("cell address for row %d: %w", r+1, err)
			}
			if err := f.SetSheetRow(sheet.Name, addr, &cells); err != nil {
				return fmt.Errorf("write row %d of %s: %w", r+1, sheet.Name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
