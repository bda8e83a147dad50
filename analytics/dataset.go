package analytics

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// missingMarkers are cell values treated as absent.
var missingMarkers = []string{"", "na", "n/a", "nan", "null", "none", "-"}

// Dataset is a table of raw cell values. Rows always have len(Columns) cells.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Load reads a .csv or .json file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading data: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(f, name)
	case ".json":
		return ReadJSON(f, name)
	default:
		return nil, fmt.Errorf("%w: %q (supported: .csv, .json)", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV reads a CSV document whose first record is the header.
func ReadCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("reading csv: no header row")
	}

	header := lo.Map(records[0], func(h string, i int) string {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return fmt.Sprintf("column_%d", i+1)
		}
		return h
	})
	ds := &Dataset{Name: name, Columns: header, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// ReadJSON reads a JSON array of flat objects. Columns are the union of keys
// in sorted order; nested values are kept as JSON text.
func ReadJSON(r io.Reader, name string) (*Dataset, error) {
	var records []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("reading json: expected an array of objects: %w", err)
	}

	keys := lo.Uniq(lo.FlatMap(records, func(rec map[string]any, _ int) []string { return lo.Keys(rec) }))
	sort.Strings(keys)

	ds := &Dataset{Name: name, Columns: keys, Rows: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = cellString(rec[k])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		data, _ := json.Marshal(t)
		return string(data)
	}
}

func isMissing(cell string) bool {
	return lo.Contains(missingMarkers, strings.ToLower(strings.TrimSpace(cell)))
}

func (d *Dataset) columnIndex(name string) (int, error) {
	idx := lo.IndexOf(d.Columns, name)
	if idx < 0 {
		return -1, fmt.Errorf("column %q not found", name)
	}
	return idx, nil
}

// values returns the non-missing cells of column idx.
func (d *Dataset) values(idx int) []string {
	out := make([]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		if !isMissing(row[idx]) {
			out = append(out, strings.TrimSpace(row[idx]))
		}
	}
	return out
}

// numbers parses every non-missing cell of column idx; ok is false when any
// cell is not a number or the column is empty.
func (d *Dataset) numbers(idx int) ([]float64, bool) {
	vals := d.values(idx)
	if len(vals) == 0 {
		return nil, false
	}
	nums := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		nums = append(nums, f)
	}
	return nums, true
}

// NumericColumns lists the columns whose values all parse as numbers.
func (d *Dataset) NumericColumns() []string {
	return lo.Filter(d.Columns, func(_ string, i int) bool {
		_, ok := d.numbers(i)
		return ok
	})
}
