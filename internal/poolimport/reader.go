package poolimport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ReadFile reads the first sheet of the spreadsheet at path.
func ReadFile(path string) (Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, readErr(err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read decodes the first sheet of a spreadsheet. The format is chosen by the
// extension of name: ".xls" uses the BIFF reader, anything else is read as xlsx.
func Read(name string, r io.Reader) (Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, readErr(err)
	}
	if len(data) == 0 {
		return nil, readErr(errors.New("empty file"))
	}
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		return readXLS(data)
	}
	return readXLSX(data)
}

func readErr(err error) error {
	return &ImportError{Kind: ErrUnderlyingRead, Err: err}
}

type xlsxSheet struct {
	file       *excelize.File
	name       string
	dateStyles map[int]bool
}

func readXLSX(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, readErr(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, readErr(errors.New("workbook has no sheets"))
	}
	sheet := &xlsxSheet{file: f, name: sheets[0], dateStyles: make(map[int]bool)}

	rows, err := f.GetRows(sheet.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, readErr(err)
	}

	grid := make(Grid, len(rows))
	for r, values := range rows {
		row := make(Row, len(values))
		for c, raw := range values {
			if raw == "" {
				continue
			}
			row[c] = sheet.cell(r, c, raw)
		}
		grid[r] = row
	}
	return grid, nil
}

func (s *xlsxSheet) cell(r, c int, raw string) Cell {
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return TextCell(raw)
	}
	typ, err := s.file.GetCellType(s.name, axis)
	if err != nil {
		return TextCell(raw)
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return TextCell(raw)
		}
		if s.isDateStyle(axis) {
			if t, err := excelize.ExcelDateToTime(v, false); err == nil {
				return DateCell(t)
			}
		}
		return NumberCell(v)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return DateCell(t)
		}
		return TextCell(raw)
	default:
		return TextCell(raw)
	}
}

func (s *xlsxSheet) isDateStyle(axis string) bool {
	id, err := s.file.GetCellStyle(s.name, axis)
	if err != nil || id == 0 {
		return false
	}
	if isDate, ok := s.dateStyles[id]; ok {
		return isDate
	}
	style, err := s.file.GetStyle(id)
	isDate := err == nil && style != nil && isDateFormat(style.NumFmt, style.CustomNumFmt)
	s.dateStyles[id] = isDate
	return isDate
}

// isDateFormat recognizes built-in and custom formats that show a calendar
// date. Time-only formats stay numeric so the time normalizer sees day fractions.
func isDateFormat(id int, custom *string) bool {
	switch id {
	case 14, 15, 16, 17, 22:
		return true
	}
	if custom == nil {
		return false
	}
	code := strings.ToLower(*custom)
	return strings.Contains(code, "yy") || strings.Contains(code, "dd") || strings.Contains(code, "mmm")
}

func readXLS(data []byte) (grid Grid, err error) {
	// The BIFF decoder panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, readErr(fmt.Errorf("decode xls: %v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, readErr(err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, readErr(errors.New("workbook has no sheets"))
	}

	grid = make(Grid, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			grid = append(grid, nil)
			continue
		}
		row := make(Row, max(r.LastCol(), 0))
		for c := max(r.FirstCol(), 0); c < r.LastCol(); c++ {
			row[c] = xlsCell(r.Col(c))
		}
		grid = append(grid, row)
	}
	return grid, nil
}

var xlsDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05", "2006-01-02"}

// xlsCell types a formatted BIFF value. The decoder renders every cell as
// text, so numbers and ISO timestamps are recovered here.
func xlsCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	if looksNumeric(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return NumberCell(v)
		}
	}
	for _, layout := range xlsDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateCell(t)
		}
	}
	return TextCell(s)
}

func looksNumeric(s string) bool {
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && i == 0:
		case r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}
