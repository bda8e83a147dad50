package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const sampleRows = 5

// Summary renders the dataset profile as plain text for the data-insights
// prompt: shape, per-column statistics, missing values, strong correlations
// and a few sample rows.
func (d *Dataset) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %s\n", d.Name)
	fmt.Fprintf(&sb, "Shape: %d rows x %d columns\n\n", len(d.Rows), len(d.Columns))

	sb.WriteString("Columns:\n")
	for _, c := range d.Describe() {
		fmt.Fprintf(&sb, "- %s (%s): %d values, %d missing (%.2f%%), %d unique", c.Name, c.Type, c.Count, c.Missing, c.MissingPct, c.Unique)
		switch c.Type {
		case Numeric:
			fmt.Fprintf(&sb, "; mean %s, median %s, std %s, min %s, max %s",
				num(*c.Mean), num(*c.Median), num(*c.Std), num(*c.Min), num(*c.Max))
		case Categorical:
			top := lo.Map(c.TopValues, func(v ValueCount, _ int) string { return fmt.Sprintf("%s (%d)", v.Value, v.Count) })
			if len(top) > 5 {
				top = top[:5]
			}
			fmt.Fprintf(&sb, "; top: %s", strings.Join(top, ", "))
		}
		sb.WriteString("\n")
	}

	missing := d.MissingValues()
	fmt.Fprintf(&sb, "\nMissing values: %d total, %d of %d rows incomplete\n", missing.Total, missing.RowsWithMissing, len(d.Rows))
	cols := lo.Keys(missing.ByColumn)
	sort.Strings(cols)
	for _, col := range cols {
		fmt.Fprintf(&sb, "- %s: %d (%.2f%%)\n", col, missing.ByColumn[col], missing.Percent[col])
	}

	strong := d.StrongCorrelations(StrongCorrelation)
	sb.WriteString("\nStrong correlations (|r| > 0.7):\n")
	if len(strong) == 0 {
		sb.WriteString("- none\n")
	}
	for _, p := range strong {
		fmt.Fprintf(&sb, "- %s ~ %s: r = %.3f\n", p.A, p.B, p.R)
	}

	sb.WriteString("\nSample rows:\n")
	sb.WriteString(strings.Join(d.Columns, " | "))
	sb.WriteString("\n")
	for _, row := range lo.Slice(d.Rows, 0, sampleRows) {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", f), "0"), ".")
}

// ColumnDetail renders one column in depth: its statistics and, for numeric
// columns, the outliers found by method ("iqr" or "zscore").
func (d *Dataset) ColumnDetail(name, method string) (string, error) {
	c, err := d.Column(name)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Column %s (%s)\n", c.Name, c.Type)
	fmt.Fprintf(&sb, "Values: %d, missing: %d (%.2f%%), unique: %d\n", c.Count, c.Missing, c.MissingPct, c.Unique)
	switch c.Type {
	case Numeric:
		fmt.Fprintf(&sb, "Mean %s, median %s, std %s, min %s, max %s\n",
			num(*c.Mean), num(*c.Median), num(*c.Std), num(*c.Min), num(*c.Max))
		out, err := d.DetectOutliers(name, method)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "Outliers (%s): %d (%.2f%%)", out.Method, out.Count, out.Percent)
		if out.Lower != nil {
			fmt.Fprintf(&sb, ", fences %s .. %s", num(*out.Lower), num(*out.Upper))
		}
		sb.WriteString("\n")
		if len(out.Values) > 0 {
			vals := lo.Map(out.Values, func(v float64, _ int) string { return num(v) })
			fmt.Fprintf(&sb, "Outlier values: %s\n", strings.Join(vals, ", "))
		}
	case Categorical:
		sb.WriteString("Top values:\n")
		for _, v := range c.TopValues {
			fmt.Fprintf(&sb, "- %s: %d\n", v.Value, v.Count)
		}
	}
	return sb.String(), nil
}
