// Package portfolio turns uploaded holdings spreadsheets into weighted
// positions and measures how much of a portfolio rides on each narrative.
package portfolio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"narrativelens/internal/model"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Error text is shown to the user as-is.
var (
	ErrNoHoldings   = errors.New("No valid holdings found in file")
	ErrUnrecognized = errors.New("Could not parse file. Expected columns: Ticker/Symbol, Name (optional), Weight/Allocation")
	ErrUnreadable   = errors.New("Failed to parse file. Please check the format.")
	ErrUnsupported  = errors.New("Unsupported file type. Expected CSV, XLSX or XLS")
)

var (
	tickerHeader = regexp.MustCompile(`(?i)ticker|symbol`)
	nameHeader   = regexp.MustCompile(`(?i)name|company|description`)
	weightHeader = regexp.MustCompile(`(?i)weight|allocation|%|percent`)
	fileSuffix   = regexp.MustCompile(`(?i)\.(csv|xlsx|xls)$`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Parse reads an uploaded CSV, XLSX or XLS file and returns the holdings it
// contains, named after the file.
func Parse(filename string, data []byte) (*model.Portfolio, error) {
	rows, err := ReadRows(filename, data)
	if err != nil {
		return nil, err
	}

	holdings, err := ParseRows(rows)
	if err != nil {
		return nil, err
	}

	return &model.Portfolio{
		Name:     PortfolioName(filename),
		Holdings: holdings,
	}, nil
}

func PortfolioName(filename string) string {
	return fileSuffix.ReplaceAllString(filepath.Base(filename), "")
}

// ReadRows loads the first sheet (or the whole CSV) as a table of strings.
func ReadRows(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(data)
	case ".xlsx":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	}
	return nil, ErrUnsupported
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		row := make([]string, len(record))
		for i, cell := range record {
			row[i] = strings.TrimSpace(strings.ReplaceAll(cell, `"`, ""))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrUnreadable
	}

	// raw values so number formats like "0%" don't round the weights
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// the BIFF reader panics on some malformed workbooks
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrUnreadable
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, []string{})
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// ParseRows locates a header row naming both a ticker column and a weight
// column and reads the rows beneath it. Without such a header the table is
// read positionally as ticker, name, weight (or ticker, weight) from the
// second row on.
func ParseRows(rows [][]string) ([]model.Holding, error) {
	headerRow := findHeaderRow(rows)
	if headerRow == -1 {
		holdings := parsePositional(rows)
		if len(holdings) == 0 {
			return nil, ErrUnrecognized
		}
		return holdings, nil
	}

	headers := rows[headerRow]
	tickerIdx := findColumn(headers, tickerHeader)
	nameIdx := findColumn(headers, nameHeader)
	weightIdx := findColumn(headers, weightHeader)

	var holdings []model.Holding
	for _, row := range rows[headerRow+1:] {
		ticker := strings.ToUpper(strings.TrimSpace(cell(row, tickerIdx)))
		name := ticker
		if nameIdx >= 0 {
			if n := strings.TrimSpace(cell(row, nameIdx)); n != "" {
				name = n
			}
		}
		if h, ok := newHolding(ticker, name, cell(row, weightIdx)); ok {
			holdings = append(holdings, h)
		}
	}

	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}
	return holdings, nil
}

func parsePositional(rows [][]string) []model.Holding {
	if len(rows) < 2 {
		return nil
	}

	var holdings []model.Holding
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[0]))
		name := ticker
		weight := row[1]
		if len(row) >= 3 {
			name = strings.TrimSpace(row[1])
			weight = row[2]
		}
		if h, ok := newHolding(ticker, name, weight); ok {
			holdings = append(holdings, h)
		}
	}
	return holdings
}

func newHolding(ticker, name, rawWeight string) (model.Holding, bool) {
	if ticker == "" {
		return model.Holding{}, false
	}
	weight, ok := parseWeight(rawWeight)
	if !ok || weight <= 0 {
		return model.Holding{}, false
	}
	if weight > 1 {
		weight = weight / 100
	}
	return model.Holding{Ticker: ticker, Name: name, Weight: weight}, true
}

// parseWeight drops one percent sign and reads the leading number, so
// "12.5%" and "12.5 (est)" both give 12.5.
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, "%", "", 1))
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		if findColumn(row, tickerHeader) >= 0 && findColumn(row, weightHeader) >= 0 {
			return i
		}
	}
	return -1
}

func findColumn(row []string, re *regexp.Regexp) int {
	for i, c := range row {
		if re.MatchString(c) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
