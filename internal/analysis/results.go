// Package analysis implements the aggregation engine: descriptive
// statistics, value counts, top-N ranking and time-series extraction
// over a resolved dataset column. Each operation returns an explicit
// result type; input-shape problems (no such column, no numeric values)
// come back as *ErrorResult values rather than Go errors, so the calling
// model can observe the failure and retry with different arguments.
package analysis

import "math"

// ErrorResult is a structured, model-facing failure. It is a returnable
// value, never a thrown error: nothing in this package is fatal.
type ErrorResult struct {
	Message          string   `json:"error"`
	AvailableColumns []string `json:"available_columns,omitempty"`
}

// DescribeResult holds descriptive statistics for one numeric column.
// All floating fields are rounded to 4 decimal places.
type DescribeResult struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"` // population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ValueCount is one entry of a frequency ranking.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCountsResult ranks the most frequent raw values of a column.
type ValueCountsResult struct {
	Column string       `json:"column"`
	TopN   int          `json:"top_n"`
	Counts []ValueCount `json:"counts"`
}

// TopRowsResult holds the first N rows after sorting by a numeric column,
// projected to a small field subset.
type TopRowsResult struct {
	Column    string              `json:"column"`
	Ascending bool                `json:"ascending"`
	Rows      []map[string]string `json:"rows"`
}

// TimePoint is one (date, value) pair of a time series.
type TimePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TimeSeriesResult pairs a numeric metric with the dataset's date column,
// sorted chronologically ascending.
type TimeSeriesResult struct {
	Metric     string      `json:"metric"`
	DateColumn string      `json:"date_column"`
	Points     []TimePoint `json:"points"`
}

// ChartPoint is one labeled value of a chart payload.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is the tagged payload handed to the caller for rendering.
// Truncated is only set on sanitized copies sent back to the model;
// the chart list retained for the caller always holds the full data.
type Chart struct {
	Type      string       `json:"_chartType"` // "line" or "bar"
	Title     string       `json:"title,omitempty"`
	Data      []ChartPoint `json:"data"`
	Truncated bool         `json:"truncated,omitempty"`
}

// Chartable is implemented by results that carry a renderable chart.
type Chartable interface {
	Chart() *Chart
}

// Chart converts the series into a line chart payload.
func (r *TimeSeriesResult) Chart() *Chart {
	data := make([]ChartPoint, 0, len(r.Points))
	for _, p := range r.Points {
		data = append(data, ChartPoint{Label: p.Date, Value: p.Value})
	}
	return &Chart{Type: "line", Title: r.Metric + " over time", Data: data}
}

// Chart converts the ranking into a bar chart payload.
func (r *ValueCountsResult) Chart() *Chart {
	data := make([]ChartPoint, 0, len(r.Counts))
	for _, c := range r.Counts {
		data = append(data, ChartPoint{Label: c.Value, Value: float64(c.Count)})
	}
	return &Chart{Type: "bar", Title: r.Column + " value counts", Data: data}
}

// Truncate returns a copy limited to the first n data points with the
// truncation flag set. Charts at or under the limit are returned as-is.
func (c *Chart) Truncate(n int) *Chart {
	if len(c.Data) <= n {
		return c
	}
	return &Chart{
		Type:      c.Type,
		Title:     c.Title,
		Data:      c.Data[:n],
		Truncated: true,
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
