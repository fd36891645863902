package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxExcelSerial is the serial number of 9999-12-31, the last date Excel stores.
const maxExcelSerial = 2958465

// preferredSheets are checked in order before falling back to the first sheet.
var preferredSheets = []string{"transactions", "statement", "account activity", "data", "sheet1"}

// ParseWorkbook reads an XLSX statement. The transaction sheet is flattened to
// a header row plus data rows and goes through the same detection and row
// conversion as a CSV file. The error is non-nil only when the workbook itself
// cannot be read.
func ParseWorkbook(reader io.Reader) (Outcome, error) {
	// Raw values keep date cells as serial numbers instead of the cell's
	// display format, which varies with the author's locale.
	f, err := excelize.OpenReader(reader, excelize.Options{RawCellValue: true})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findTransactionSheet(f.GetSheetList())
	if sheetName == "" {
		return failed(ErrEmptyInput), nil
	}

	iter, err := f.Rows(sheetName)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	defer iter.Close()

	var (
		headers []string
		rows    []row
		rowNum  int
	)
	for iter.Next() {
		rowNum++
		cells, err := iter.Columns()
		if err != nil {
			rows = append(rows, row{num: rowNum, err: err})
			continue
		}
		if isBlank(cells) {
			continue
		}
		if headers == nil {
			headers = cells
			continue
		}
		rows = append(rows, row{num: rowNum, fields: cells})
	}
	if err := iter.Error(); err != nil {
		return Outcome{}, fmt.Errorf("failed to iterate sheet %s: %w", sheetName, err)
	}

	return parseRows(headers, rows, serialDate(uses1904Dates(f))), nil
}

// serialDate converts a date cell holding an Excel serial number to an ISO
// date. Text cells are returned unchanged.
func serialDate(date1904 bool) func(string) string {
	return func(cell string) string {
		serial, err := strconv.ParseFloat(cell, 64)
		if err != nil || serial < 1 || serial > maxExcelSerial {
			return cell
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return cell
		}
		return t.Format("2006-01-02")
	}
}

func uses1904Dates(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	return err == nil && props.Date1904 != nil && *props.Date1904
}

// findTransactionSheet picks the sheet most likely to hold transactions.
func findTransactionSheet(sheets []string) string {
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range preferredSheets {
		for _, sheet := range sheets {
			if strings.EqualFold(strings.TrimSpace(sheet), preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
