package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// Format is a supported tabular file format
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
)

// Row is one loosely typed record keyed by column header.
type Row map[string]any

// DetectFormat picks the format from the file extension, falling back to the content.
func DetectFormat(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".parquet":
		return FormatParquet
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	}

	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FormatXLSX
	case bytes.HasPrefix(data, []byte("PAR1")):
		return FormatParquet
	case bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n\ufeff"), []byte("[")):
		return FormatJSON
	default:
		return FormatCSV
	}
}

// ReadRows parses the first sheet or table of data into header-keyed rows.
func ReadRows(format Format, data []byte) ([]Row, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(data)
	case FormatParquet:
		return readParquet(data)
	case FormatCSV:
		return readCSV(data)
	case FormatJSON:
		return readJSON(data)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
}

func readXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	for r, record := range records {
		for c, value := range record {
			if !strings.ContainsAny(value, "eE") {
				continue
			}
			numeric, err := isNumericCell(f, sheets[0], c+1, r+1)
			if err != nil {
				return nil, err
			}
			if numeric {
				record[c] = plainNumber(value)
			}
		}
	}
	return recordsToRows(records), nil
}

// isNumericCell reports whether the cell holds a number rather than text.
// Number cells are usually written without a type attribute.
func isNumericCell(f *excelize.File, sheet string, col, row int) (bool, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false, fmt.Errorf("failed to resolve cell %d,%d: %w", col, row, err)
	}
	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return false, fmt.Errorf("failed to read cell type of %s: %w", axis, err)
	}
	return cellType == excelize.CellTypeNumber || cellType == excelize.CellTypeUnset, nil
}

func readCSV(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return recordsToRows(records), nil
}

// recordsToRows turns a header row plus data rows into keyed rows.
// Blank headers are skipped; short rows leave trailing columns unset.
func recordsToRows(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := Row{}
		for i, cell := range record {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = cell
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

func readJSON(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	dec.UseNumber()

	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse json rows: %w", err)
	}
	return rows, nil
}

func readParquet(data []byte) ([]Row, error) {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	columns := pf.Schema().Columns()
	headers := make([]string, len(columns))
	for i, path := range columns {
		headers[i] = strings.Join(path, ".")
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	var rows []Row
	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for _, values := range buf[:n] {
			row := Row{}
			for _, v := range values {
				col := v.Column()
				if v.IsNull() || col < 0 || col >= len(headers) {
					continue
				}
				row[headers[col]] = parquetValue(v)
			}
			rows = append(rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}

func parquetValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return string(v.ByteArray())
	}
}

// CellString renders a loosely typed cell as text. Numbers never use exponent notation.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return plainNumber(x.String())
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// plainNumber rewrites exponent-notation numbers like 1.2345E+4 as 12345.
func plainNumber(s string) string {
	if !strings.ContainsAny(s, "eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
