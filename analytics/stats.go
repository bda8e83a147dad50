package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
	Empty       ColumnType = "empty"

	topValueLimit       = 10
	StrongCorrelation   = 0.7
	outlierValueLimit   = 50
	zScoreOutlierCutoff = 3
)

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnSummary describes one column. Numeric statistics are nil for
// categorical columns.
type ColumnSummary struct {
	Name       string       `json:"name"`
	Type       ColumnType   `json:"type"`
	Count      int          `json:"count"`
	Missing    int          `json:"missing"`
	MissingPct float64      `json:"missingPct"`
	Unique     int          `json:"unique"`
	Mean       *float64     `json:"mean,omitempty"`
	Median     *float64     `json:"median,omitempty"`
	Std        *float64     `json:"std,omitempty"`
	Min        *float64     `json:"min,omitempty"`
	Max        *float64     `json:"max,omitempty"`
	Q25        *float64     `json:"q25,omitempty"`
	Q75        *float64     `json:"q75,omitempty"`
	TopValues  []ValueCount `json:"topValues,omitempty"`
	MostCommon string       `json:"mostCommon,omitempty"`
}

// Describe summarizes every column in order.
func (d *Dataset) Describe() []ColumnSummary {
	return lo.Map(d.Columns, func(_ string, i int) ColumnSummary { return d.describe(i) })
}

// Column summarizes one column by name.
func (d *Dataset) Column(name string) (ColumnSummary, error) {
	idx, err := d.columnIndex(name)
	if err != nil {
		return ColumnSummary{}, err
	}
	return d.describe(idx), nil
}

func (d *Dataset) describe(idx int) ColumnSummary {
	vals := d.values(idx)
	s := ColumnSummary{
		Name:    d.Columns[idx],
		Count:   len(vals),
		Missing: len(d.Rows) - len(vals),
		Unique:  len(lo.Uniq(vals)),
	}
	s.MissingPct = percent(s.Missing, len(d.Rows))

	if nums, ok := d.numbers(idx); ok {
		s.Type = Numeric
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		s.Mean = lo.ToPtr(mean(nums))
		s.Median = lo.ToPtr(quantile(sorted, 0.5))
		s.Std = lo.ToPtr(stddev(nums, 1))
		s.Min = lo.ToPtr(sorted[0])
		s.Max = lo.ToPtr(sorted[len(sorted)-1])
		s.Q25 = lo.ToPtr(quantile(sorted, 0.25))
		s.Q75 = lo.ToPtr(quantile(sorted, 0.75))
		return s
	}
	if len(vals) == 0 {
		s.Type = Empty
		return s
	}

	s.Type = Categorical
	s.TopValues = topValues(vals, topValueLimit)
	s.MostCommon = s.TopValues[0].Value
	return s
}

func topValues(vals []string, limit int) []ValueCount {
	counts := lo.CountValues(vals)
	out := lo.MapToSlice(counts, func(v string, c int) ValueCount { return ValueCount{Value: v, Count: c} })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type MissingReport struct {
	Total              int                `json:"total"`
	ByColumn           map[string]int     `json:"byColumn"`
	Percent            map[string]float64 `json:"percent"`
	RowsWithMissing    int                `json:"rowsWithMissing"`
	RowsWithMissingPct float64            `json:"rowsWithMissingPct"`
	CompleteRows       int                `json:"completeRows"`
}

// MissingValues counts absent cells per column and per row. Only columns
// with at least one missing cell are listed.
func (d *Dataset) MissingValues() MissingReport {
	rep := MissingReport{ByColumn: map[string]int{}, Percent: map[string]float64{}}
	for _, row := range d.Rows {
		rowMissing := false
		for i, cell := range row {
			if isMissing(cell) {
				rep.Total++
				rep.ByColumn[d.Columns[i]]++
				rowMissing = true
			}
		}
		if rowMissing {
			rep.RowsWithMissing++
		}
	}
	for col, n := range rep.ByColumn {
		rep.Percent[col] = percent(n, len(d.Rows))
	}
	rep.RowsWithMissingPct = percent(rep.RowsWithMissing, len(d.Rows))
	rep.CompleteRows = len(d.Rows) - rep.RowsWithMissing
	return rep
}

type Pair struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// Correlation is the Pearson coefficient of two numeric columns over rows
// where both are present.
func (d *Dataset) Correlation(a, b string) (float64, error) {
	ia, err := d.columnIndex(a)
	if err != nil {
		return 0, err
	}
	ib, err := d.columnIndex(b)
	if err != nil {
		return 0, err
	}
	var xs, ys []float64
	for _, row := range d.Rows {
		if isMissing(row[ia]) || isMissing(row[ib]) {
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(row[ia]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(row[ib]), 64)
		if errX != nil || errY != nil {
			return 0, fmt.Errorf("columns %q and %q must be numeric", a, b)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return pearson(xs, ys)
}

// Correlations returns every numeric column pair ordered by strength.
// Pairs without a defined coefficient are skipped.
func (d *Dataset) Correlations() []Pair {
	cols := d.NumericColumns()
	var pairs []Pair
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			r, err := d.Correlation(cols[i], cols[j])
			if err != nil {
				continue
			}
			pairs = append(pairs, Pair{A: cols[i], B: cols[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return math.Abs(pairs[i].R) > math.Abs(pairs[j].R) })
	return pairs
}

// StrongCorrelations keeps pairs with |r| above threshold.
func (d *Dataset) StrongCorrelations(threshold float64) []Pair {
	return lo.Filter(d.Correlations(), func(p Pair, _ int) bool { return math.Abs(p.R) > threshold })
}

type Outliers struct {
	Column  string    `json:"column"`
	Method  string    `json:"method"`
	Count   int       `json:"count"`
	Percent float64   `json:"percent"`
	Lower   *float64  `json:"lower,omitempty"`
	Upper   *float64  `json:"upper,omitempty"`
	Values  []float64 `json:"values"`
}

// DetectOutliers finds outliers with the "iqr" (1.5 x IQR fences) or
// "zscore" (|z| > 3) method.
func (d *Dataset) DetectOutliers(column, method string) (Outliers, error) {
	idx, err := d.columnIndex(column)
	if err != nil {
		return Outliers{}, err
	}
	nums, ok := d.numbers(idx)
	if !ok {
		return Outliers{}, fmt.Errorf("column %q is not numeric", column)
	}

	res := Outliers{Column: column, Method: method, Values: []float64{}}
	var keep func(float64) bool
	switch method {
	case "iqr":
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
		lower, upper := q1-1.5*(q3-q1), q3+1.5*(q3-q1)
		res.Lower, res.Upper = lo.ToPtr(lower), lo.ToPtr(upper)
		keep = func(v float64) bool { return v < lower || v > upper }
	case "zscore":
		m, sd := mean(nums), stddev(nums, 0)
		keep = func(v float64) bool { return sd > 0 && math.Abs(v-m)/sd > zScoreOutlierCutoff }
	default:
		return Outliers{}, fmt.Errorf("unknown method %q, use iqr or zscore", method)
	}

	found := lo.Filter(nums, func(v float64, _ int) bool { return keep(v) })
	res.Count = len(found)
	res.Percent = percent(len(found), len(nums))
	if len(found) > outlierValueLimit {
		found = found[:outlierValueLimit]
	}
	res.Values = append(res.Values, found...)
	return res, nil
}

var errUndefined = errors.New("correlation undefined: need two or more rows with non-constant values")

func pearson(xs, ys []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, errUndefined
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, errUndefined
	}
	return sxy / math.Sqrt(sxx*syy), nil
}

func mean(xs []float64) float64 {
	return lo.Sum(xs) / float64(len(xs))
}

// stddev with ddof 1 is the sample deviation, 0 the population one.
func stddev(xs []float64, ddof int) float64 {
	n := len(xs) - ddof
	if n <= 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(n))
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	low, high := int(math.Floor(pos)), int(math.Ceil(pos))
	frac := pos - float64(low)
	return sorted[low] + (sorted[high]-sorted[low])*frac
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*10000) / 100
}
