package tools

import (
	"context"

	"datanerd/internal/analysis"
	"datanerd/internal/dataset"
)

// Source yields the current dataset. The session layer swaps datasets
// between exchanges (watch mode); tools always read through this hook so
// a reload never changes data mid-exchange.
type Source func() *dataset.Dataset

// RegisterDatasetTools installs the analytical tool menu on the registry.
func RegisterDatasetTools(r *Registry, source Source) {
	r.MustRegister(NewColumnStatsTool(source))
	r.MustRegister(NewValueCountsTool(source))
	r.MustRegister(NewTopRowsTool(source))
	r.MustRegister(NewTimeSeriesTool(source))
	r.MustRegister(NewEngagementStatsTool(source))
	r.MustRegister(NewDatasetSummaryTool(source))
	r.MustRegister(NewSelectVideoTool(source))
}

// NewColumnStatsTool returns descriptive statistics for a numeric column.
func NewColumnStatsTool(source Source) *Tool {
	return &Tool{
		Name:        "get_column_stats",
		Description: "Compute count, mean, median, standard deviation, min and max over the numeric values of a column.",
		Schema: ToolSchema{
			Required: []string{"column"},
			Properties: map[string]Property{
				"column": {Type: "string", Description: "Column name (fuzzy-matched against the dataset headers)"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			result, errRes := analysis.Describe(source(), stringArg(args, "column"))
			if errRes != nil {
				return errRes, nil
			}
			return result, nil
		},
	}
}

// NewValueCountsTool ranks the most frequent values of a column.
func NewValueCountsTool(source Source) *Tool {
	return &Tool{
		Name:        "get_value_counts",
		Description: "Count occurrences of each distinct value in a column and return the most frequent ones.",
		Schema: ToolSchema{
			Required: []string{"column"},
			Properties: map[string]Property{
				"column": {Type: "string", Description: "Column name (fuzzy-matched against the dataset headers)"},
				"top_n":  {Type: "integer", Description: "How many values to return", Default: analysis.DefaultTopN},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			result, errRes := analysis.ValueCounts(source(), stringArg(args, "column"), intArg(args, "top_n"))
			if errRes != nil {
				return errRes, nil
			}
			return result, nil
		},
	}
}

// NewTopRowsTool sorts rows by a numeric column and returns the leaders.
func NewTopRowsTool(source Source) *Tool {
	return &Tool{
		Name:        "get_top_rows",
		Description: "Sort the dataset by a numeric column and return the top rows projected to title, views, favorites and engagement.",
		Schema: ToolSchema{
			Required: []string{"column"},
			Properties: map[string]Property{
				"column":    {Type: "string", Description: "Numeric column to sort by"},
				"limit":     {Type: "integer", Description: "How many rows to return", Default: analysis.DefaultTopN},
				"ascending": {Type: "boolean", Description: "Sort ascending instead of descending", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			result, errRes := analysis.TopRows(source(), stringArg(args, "column"), intArg(args, "limit"), boolArg(args, "ascending"))
			if errRes != nil {
				return errRes, nil
			}
			return result, nil
		},
	}
}

// NewTimeSeriesTool extracts a metric over the dataset's date column.
func NewTimeSeriesTool(source Source) *Tool {
	return &Tool{
		Name:        "get_time_series",
		Description: "Pair a numeric metric with the dataset's date column, sorted chronologically. Returns a line chart.",
		Schema: ToolSchema{
			Required: []string{"metric"},
			Properties: map[string]Property{
				"metric": {Type: "string", Description: "Numeric column to chart over time"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			result, errRes := analysis.TimeSeries(source(), stringArg(args, "metric"))
			if errRes != nil {
				return errRes, nil
			}
			return result, nil
		},
	}
}

// NewEngagementStatsTool reports on the engagement ratio column added at
// load time. The dataset itself is never modified here.
func NewEngagementStatsTool(source Source) *Tool {
	return &Tool{
		Name:        "get_engagement_stats",
		Description: "Summarize the engagement ratio column (favorites divided by views, computed when the dataset was loaded).",
		Schema: ToolSchema{
			Properties: map[string]Property{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			d := source()
			if !d.HasColumn(dataset.EngagementColumn) {
				return &analysis.ErrorResult{
					Message:          "dataset has no engagement column; it needs both a views and a favorites column",
					AvailableColumns: d.Headers,
				}, nil
			}
			result, errRes := analysis.Describe(d, dataset.EngagementColumn)
			if errRes != nil {
				return errRes, nil
			}
			return result, nil
		},
	}
}

// NewDatasetSummaryTool returns the textual column profile.
func NewDatasetSummaryTool(source Source) *Tool {
	return &Tool{
		Name:        "dataset_summary",
		Description: "Describe every column of the dataset: numeric columns with ranges, categorical columns with their most frequent values.",
		Schema: ToolSchema{
			Properties: map[string]Property{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return source().Profile(), nil
		},
	}
}

// NewSelectVideoTool picks one video row for playback.
func NewSelectVideoTool(source Source) *Tool {
	return &Tool{
		Name:        "select_video",
		Description: "Pick one video by selector: 'first', 'last', 'most viewed', 'least viewed', or a title substring. Returns its title and playable URL.",
		Schema: ToolSchema{
			Required: []string{"selector"},
			Properties: map[string]Property{
				"selector": {Type: "string", Description: "Which video to pick"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			result, errRes := analysis.SelectVideo(source(), stringArg(args, "selector"))
			if errRes != nil {
				return errRes, nil
			}
			return result, nil
		},
	}
}

// stringArg extracts a string argument, tolerating absence.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument. JSON decoding delivers numbers as
// float64, so both representations are accepted. Missing or mistyped
// values come back as 0 and the operation applies its own default.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// boolArg extracts a boolean argument, defaulting to false.
func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}
