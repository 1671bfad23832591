// Package cftable reads and writes tables of concordance factors, one row
// per four-taxon set, as CSV or Excel files.
package cftable

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/internal/logging"
)

var log = logging.Get("cftable")

// Column names of the table, matched without regard to case. A file
// without these headers is read by position in the same order.
var columns = [8]string{"t1", "t2", "t3", "t4", "CF12_34", "CF13_24", "CF14_23", "ngenes"}

// Reader reads a CF table from a .csv or .xlsx file.
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
}

// NewReader picks the format from the file extension. Anything other than
// .xlsx is read as CSV.
func NewReader(filePath string) *Reader {
	fileType := "csv"
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		fileType = "xlsx"
	}
	return &Reader{filePath: filePath, fileType: fileType, sheet: "Sheet1"}
}

// WithSheet selects the worksheet of an Excel file (default Sheet1).
func (r *Reader) WithSheet(sheet string) *Reader {
	r.sheet = sheet
	return r
}

// ReadRecords reads one record per data row.
func (r *Reader) ReadRecords() ([]quartet.Record, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, errors.IOError("CF table not found: "+r.filePath, err)
	}

	startTime := time.Now()
	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	records, err := ParseRows(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", r.filePath)
	}
	log.Infof("read %d four-taxon sets from %s in %.2fms", len(records), r.filePath, float64(time.Since(startTime).Nanoseconds())/1e6)
	return records, nil
}

func (r *Reader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.IOError("failed to open Excel file", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, errors.IOError("failed to read sheet "+r.sheet, err)
	}
	return rows, nil
}

func (r *Reader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IOError("failed to open CSV file", err)
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV returns the raw rows of a CSV stream.
func ReadCSV(in io.Reader) ([][]string, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IOError("failed to read CSV", err)
	}
	return rows, nil
}

// ParseRows converts raw rows into records. The first row is a header if
// it names the t1..t4 and CF columns; ngenes may be absent, in which case
// every record gets 0 genes and fails validation later.
func ParseRows(rows [][]string) ([]quartet.Record, error) {
	rows = dropEmpty(rows)
	if len(rows) == 0 {
		return nil, errors.InvalidInput("CF table is empty")
	}

	index, header := headerIndex(rows[0])
	if header {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, errors.InvalidInput("CF table has a header but no rows")
	}

	records := make([]quartet.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRow(row, index)
		if err != nil {
			line := i + 1
			if header {
				line++
			}
			return nil, errors.Wrapf(err, "row %d", line)
		}
		records = append(records, rec)
	}
	return records, nil
}

// headerIndex maps each column to its position. Without a header the
// columns are positional.
func headerIndex(first []string) ([8]int, bool) {
	var index [8]int
	for i := range index {
		index[i] = -1
	}
	for pos, cell := range first {
		name := strings.TrimSpace(cell)
		for c, want := range columns {
			if strings.EqualFold(name, want) {
				index[c] = pos
			}
		}
	}
	for c := 0; c < 7; c++ {
		if index[c] < 0 {
			for c := range index {
				index[c] = c
			}
			return index, false
		}
	}
	return index, true
}

func parseRow(row []string, index [8]int) (quartet.Record, error) {
	var rec quartet.Record
	cell := func(c int) (string, bool) {
		if index[c] < 0 || index[c] >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[index[c]]), true
	}
	for k := 0; k < 4; k++ {
		name, ok := cell(k)
		if !ok || name == "" {
			return rec, errors.InvalidInputf("missing taxon %s", columns[k])
		}
		rec.Taxa[k] = name
	}
	for k := 0; k < 3; k++ {
		s, ok := cell(4 + k)
		if !ok {
			return rec, errors.InvalidInputf("missing %s", columns[4+k])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, errors.InvalidInputf("%s is not a number: %q", columns[4+k], s)
		}
		rec.Observed[k] = v
	}
	if s, ok := cell(7); ok && s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, errors.InvalidInputf("ngenes is not a number: %q", s)
		}
		rec.NGenes = v
	}
	return rec, nil
}

func dropEmpty(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
