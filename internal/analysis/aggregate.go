package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"datanerd/internal/dataset"
	"datanerd/internal/logging"
)

// DefaultTopN is the ranking size when the caller does not supply one.
const DefaultTopN = 10

// titleTruncateLen bounds the free-text column in top-row projections.
const titleTruncateLen = 150

// Describe computes count, mean, median, population standard deviation,
// min and max over the numeric values of a column. Cells that fail
// numeric parsing are dropped silently - absent and malformed values are
// indistinguishable in the reported count. A column with no numeric
// values yields an ErrorResult listing the available headers so the model
// can correct its column choice.
func Describe(d *dataset.Dataset, column string) (*DescribeResult, *ErrorResult) {
	col := d.ResolveColumn(column)

	var nums []float64
	for _, row := range d.Rows {
		if v, ok := dataset.ParseNumeric(row[col]); ok {
			nums = append(nums, v)
		}
	}
	if len(nums) == 0 {
		return nil, &ErrorResult{
			Message:          fmt.Sprintf("no numeric values in column %q", column),
			AvailableColumns: d.Headers,
		}
	}

	sum := 0.0
	min, max := nums[0], nums[0]
	for _, n := range nums {
		sum += n
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	mean := sum / float64(len(nums))

	variance := 0.0
	for _, n := range nums {
		variance += (n - mean) * (n - mean)
	}
	variance /= float64(len(nums)) // population variance, not sample

	sorted := make([]float64, len(nums))
	copy(sorted, nums)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	logging.ToolsDebug("Describe %q: %d numeric values", col, len(nums))
	return &DescribeResult{
		Column: col,
		Count:  len(nums),
		Mean:   round4(mean),
		Median: round4(median),
		Std:    round4(math.Sqrt(variance)),
		Min:    round4(min),
		Max:    round4(max),
	}, nil
}

// ValueCounts builds a frequency ranking over the non-empty raw values of
// a column, in first-occurrence order, and returns the top N entries by
// descending count. Ties keep first-encounter order (stable sort). N
// defaults to DefaultTopN when non-positive.
func ValueCounts(d *dataset.Dataset, column string, topN int) (*ValueCountsResult, *ErrorResult) {
	col := d.ResolveColumn(column)
	if !d.HasColumn(col) {
		return nil, &ErrorResult{
			Message:          fmt.Sprintf("column %q not found", column),
			AvailableColumns: d.Headers,
		}
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	counts := make(map[string]int)
	var order []string
	for _, row := range d.Rows {
		v := row[col]
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}

	result := &ValueCountsResult{Column: col, TopN: topN}
	for _, v := range order {
		result.Counts = append(result.Counts, ValueCount{Value: v, Count: counts[v]})
	}
	return result, nil
}

// TopRows sorts all rows by the numeric value of the sort column,
// descending unless ascending is requested, and returns the first N
// projected to a compact field subset: the detected title column
// truncated to 150 characters plus any detected views, favorites and
// engagement columns. Rows whose sort cell fails numeric parsing compare
// equal and keep their original relative order.
func TopRows(d *dataset.Dataset, column string, n int, ascending bool) (*TopRowsResult, *ErrorResult) {
	col := d.ResolveColumn(column)
	if !d.HasColumn(col) {
		return nil, &ErrorResult{
			Message:          fmt.Sprintf("column %q not found", column),
			AvailableColumns: d.Headers,
		}
	}
	if n <= 0 {
		n = DefaultTopN
	}

	sorted := make([]dataset.Row, len(d.Rows))
	copy(sorted, d.Rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, iok := dataset.ParseNumeric(sorted[i][col])
		vj, jok := dataset.ParseNumeric(sorted[j][col])
		if !iok || !jok {
			return false // unparseable cells compare equal
		}
		if ascending {
			return vi < vj
		}
		return vi > vj
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	project := projectionColumns(d, col)
	result := &TopRowsResult{Column: col, Ascending: ascending}
	titleCol := d.DetectTitleColumn()
	for _, row := range sorted {
		out := make(map[string]string, len(project))
		for _, p := range project {
			v := row[p]
			if p == titleCol && len(v) > titleTruncateLen {
				v = v[:titleTruncateLen]
			}
			out[p] = v
		}
		result.Rows = append(result.Rows, out)
	}
	return result, nil
}

// projectionColumns picks the fixed field subset for top-row output.
func projectionColumns(d *dataset.Dataset, sortCol string) []string {
	var cols []string
	seen := make(map[string]bool)
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	add(d.DetectTitleColumn())
	add(d.DetectViewsColumn())
	add(d.DetectFavoritesColumn())
	if d.HasColumn(dataset.EngagementColumn) {
		add(dataset.EngagementColumn)
	}
	add(sortCol)
	return cols
}

// TimeSeries pairs the numeric values of a metric column with the
// dataset's detected date column, drops rows where the metric fails to
// parse or the date cell is absent, and sorts ascending by date. An empty
// result yields an ErrorResult ("no valid data").
func TimeSeries(d *dataset.Dataset, metric string) (*TimeSeriesResult, *ErrorResult) {
	col := d.ResolveColumn(metric)
	dateCol := d.DetectDateColumn()
	if dateCol == "" {
		return nil, &ErrorResult{
			Message:          "no date-like column found in dataset",
			AvailableColumns: d.Headers,
		}
	}

	type entry struct {
		raw   string
		point TimePoint
	}
	var entries []entry
	for _, row := range d.Rows {
		date := strings.TrimSpace(row[dateCol])
		if date == "" {
			continue
		}
		v, ok := dataset.ParseNumeric(row[col])
		if !ok {
			continue
		}
		entries = append(entries, entry{raw: date, point: TimePoint{Date: date, Value: v}})
	}
	if len(entries) == 0 {
		return nil, &ErrorResult{
			Message:          fmt.Sprintf("no valid data for time series on column %q", metric),
			AvailableColumns: d.Headers,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, iok := dataset.ParseDate(entries[i].raw)
		tj, jok := dataset.ParseDate(entries[j].raw)
		if iok && jok {
			return ti.Before(tj)
		}
		return entries[i].raw < entries[j].raw
	})

	result := &TimeSeriesResult{Metric: col, DateColumn: dateCol}
	for _, e := range entries {
		result.Points = append(result.Points, e.point)
	}
	return result, nil
}
