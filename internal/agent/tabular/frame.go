// Package tabular implements the query agent for file-backed datasources
// (CSV and Excel). Generated queries are dataframe-style expression
// snippets over a handle named df; instead of evaluating them in a general
// interpreter the agent parses them into a closed expression grammar of
// filter, select, sort, head, group-by and aggregate primitives and
// interprets only that.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/redbco/askdata/pkg/models"
)

// Frame is the in-memory tabular structure loaded once per request.
// Cell values are typed scalars: int64, float64, bool, string, or nil
// for missing cells.
type Frame struct {
	Columns []string
	Rows    [][]interface{}
}

func (f *Frame) colIndex(name string) (int, bool) {
	for i, col := range f.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// column returns all values of one column.
func (f *Frame) column(name string) ([]interface{}, bool) {
	idx, ok := f.colIndex(name)
	if !ok {
		return nil, false
	}
	values := make([]interface{}, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// loadFrame reads the datasource file into a Frame, selecting the reader
// by file extension.
func loadFrame(ds *models.Datasource) (*Frame, error) {
	details := ds.Details
	path := details.FilePath
	name := details.FileName
	if name == "" {
		name = path
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return loadCSV(path)
	case ".xlsx", ".xls":
		return loadExcel(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", name)
	}
}

func loadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %v", err)
	}

	return frameFromRecords(records)
}

func loadExcel(path string) (*Frame, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in workbook")
	}

	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet: %v", err)
	}

	return frameFromRecords(records)
}

func frameFromRecords(records [][]string) (*Frame, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	frame := &Frame{Columns: records[0]}
	width := len(frame.Columns)

	for _, record := range records[1:] {
		row := make([]interface{}, width)
		for i := 0; i < width; i++ {
			if i < len(record) {
				row[i] = parseCell(record[i])
			}
		}
		frame.Rows = append(frame.Rows, row)
	}

	return frame, nil
}

// parseCell infers a typed value from raw text. Empty cells become nil.
func parseCell(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

// dtypeOf names a column's inferred type in the dataframe convention the
// generation models expect.
func dtypeOf(values []interface{}) string {
	hasInt, hasFloat, hasBool, hasString := false, false, false, false
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64:
			hasInt = true
		case float64:
			hasFloat = true
		case bool:
			hasBool = true
		default:
			hasString = true
		}
	}
	switch {
	case hasString:
		return "object"
	case hasBool && !hasInt && !hasFloat:
		return "bool"
	case hasFloat:
		return "float64"
	case hasInt:
		return "int64"
	default:
		return "object"
	}
}

// columnStats computes the per-column summary used by schema context and
// schema info.
type columnStats struct {
	dtype        string
	nonNullCount int
	uniqueCount  int
	numeric      bool
	min          float64
	max          float64
	mean         float64
}

func statsFor(values []interface{}) columnStats {
	stats := columnStats{dtype: dtypeOf(values)}

	seen := make(map[string]bool)
	var sum float64
	var numericCount int
	for _, v := range values {
		if v == nil {
			continue
		}
		stats.nonNullCount++
		seen[fmt.Sprintf("%v", v)] = true

		if f, ok := toFloat(v); ok {
			if numericCount == 0 || f < stats.min {
				stats.min = f
			}
			if numericCount == 0 || f > stats.max {
				stats.max = f
			}
			sum += f
			numericCount++
		}
	}
	stats.uniqueCount = len(seen)

	if (stats.dtype == "int64" || stats.dtype == "float64") && numericCount > 0 {
		stats.numeric = true
		stats.mean = sum / float64(numericCount)
	}
	return stats
}

// toFloat coerces numeric cell values for comparisons and aggregates.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// sampleValues returns up to n non-null values of a column, in row order.
func sampleValues(values []interface{}, n int) []interface{} {
	var out []interface{}
	for _, v := range values {
		if v == nil {
			continue
		}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}
