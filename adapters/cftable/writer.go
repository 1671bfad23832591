package cftable

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"netgof/domain/quartet"
	"netgof/internal/errors"
)

// Header of a written table. Observed CFs keep the input column names,
// expected CFs get an exp_ prefix.
var Header = []string{
	"t1", "t2", "t3", "t4",
	"CF12_34", "CF13_24", "CF14_23", "ngenes",
	"exp_CF12_34", "exp_CF13_24", "exp_CF14_23", "pvalue",
}

func row(r *quartet.Record) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		r.Taxa[0], r.Taxa[1], r.Taxa[2], r.Taxa[3],
		f(r.Observed[0]), f(r.Observed[1]), f(r.Observed[2]), f(r.NGenes),
		f(r.Expected[0]), f(r.Expected[1]), f(r.Expected[2]), f(r.PValue),
	}
}

// WriteCSV writes records with their expected CFs and p-values.
func WriteCSV(w io.Writer, records []quartet.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.IOError("failed to write CSV header", err)
	}
	for i := range records {
		if err := cw.Write(row(&records[i])); err != nil {
			return errors.IOError("failed to write CSV row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.IOError("failed to write CSV", err)
	}
	return nil
}

// WriteExcel writes records to Sheet1 of a new workbook at path.
func WriteExcel(path string, records []quartet.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.IOError("failed to write Excel header", err)
	}
	for i := range records {
		r := &records[i]
		values := []interface{}{
			r.Taxa[0], r.Taxa[1], r.Taxa[2], r.Taxa[3],
			r.Observed[0], r.Observed[1], r.Observed[2], r.NGenes,
			r.Expected[0], r.Expected[1], r.Expected[2], r.PValue,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.IOError("failed to address Excel row", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.IOError("failed to write Excel row", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.IOError("failed to save "+path, err)
	}
	return nil
}

// WriteFile writes an .xlsx workbook or, for any other extension, a CSV
// file.
func WriteFile(path string, records []quartet.Record) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteExcel(path, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError("failed to create "+path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.IOError("failed to close "+path, err)
	}
	return nil
}
