package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Profile produces a compact textual description of every column, split
// into numeric and categorical groups, for inclusion in a model prompt.
// A column counts as numeric when at least 80% of its non-blank values
// parse as numbers. Column names are always double-quoted so the model
// can copy them into tool arguments exactly. The output is deterministic
// for a given dataset.
func (d *Dataset) Profile() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset profile: %d rows, %d columns.\n", len(d.Rows), len(d.Headers))

	var numeric, categorical []string
	for _, h := range d.Headers {
		if line, ok := d.profileNumeric(h); ok {
			numeric = append(numeric, line)
		} else {
			categorical = append(categorical, d.profileCategorical(h))
		}
	}

	if len(numeric) > 0 {
		b.WriteString("\nNumeric columns:\n")
		for _, line := range numeric {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if len(categorical) > 0 {
		b.WriteString("\nCategorical columns:\n")
		for _, line := range categorical {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (d *Dataset) nonBlankValues(column string) []string {
	var values []string
	for _, row := range d.Rows {
		if v := strings.TrimSpace(row[column]); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func (d *Dataset) profileNumeric(column string) (string, bool) {
	values := d.nonBlankValues(column)
	if len(values) == 0 {
		return "", false
	}

	var nums []float64
	for _, v := range values {
		if f, ok := ParseNumeric(v); ok {
			nums = append(nums, f)
		}
	}
	if float64(len(nums)) < 0.8*float64(len(values)) {
		return "", false
	}

	sum, min, max := 0.0, nums[0], nums[0]
	for _, n := range nums {
		sum += n
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	mean := math.Round(sum/float64(len(nums))*1e4) / 1e4

	return fmt.Sprintf("- %q: %d non-null, mean=%v, min=%v, max=%v",
		column, len(nums), mean, min, max), true
}

func (d *Dataset) profileCategorical(column string) string {
	values := d.nonBlankValues(column)

	// Frequency in first-occurrence order so ties render stably.
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	top := order
	if len(top) > 5 {
		top = top[:5]
	}
	parts := make([]string, 0, len(top))
	for _, v := range top {
		parts = append(parts, fmt.Sprintf("%q (%d)", v, counts[v]))
	}

	return fmt.Sprintf("- %q: %d unique values; top: %s",
		column, len(order), strings.Join(parts, ", "))
}
