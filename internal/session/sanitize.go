package session

import (
	"encoding/json"
	"fmt"

	"datanerd/internal/analysis"
	"datanerd/internal/tools"
)

// sanitizeForModel converts a tool value into the string echoed back to
// the model. Image bytes never travel to the model; they are replaced
// with an acknowledgement that names the prompt so the model can refer
// to the image in its answer. Chart-bearing results are truncated to
// maxChartPoints before serialization.
func sanitizeForModel(value any, maxChartPoints int) string {
	switch v := value.(type) {
	case nil:
		return "null"

	case string:
		return v

	case *tools.ImageResult:
		ack := map[string]string{
			"status": "image generated and attached for the user",
			"prompt": v.Prompt,
		}
		return mustJSON(ack)

	case analysis.Chartable:
		return mustJSON(chartablePayload(v, maxChartPoints))

	default:
		return mustJSON(v)
	}
}

// chartablePayload wraps a chart-bearing result with its (possibly
// truncated) chart. When truncation kicks in, the result itself is
// replaced by the chart alone so the untruncated points cannot leak
// through the result fields.
func chartablePayload(v analysis.Chartable, maxChartPoints int) any {
	chart := v.Chart()
	truncated := chart.Truncate(maxChartPoints)
	if !truncated.Truncated {
		return map[string]any{
			"result": v,
			"chart":  chart,
		}
	}
	return map[string]any{
		"chart": truncated,
		"note":  fmt.Sprintf("chart truncated to first %d of %d points; the user sees the full chart", maxChartPoints, len(chart.Data)),
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Tool values are plain structs and maps; this only fires on a
		// programming error.
		return fmt.Sprintf(`{"error":"failed to serialize result: %v"}`, err)
	}
	return string(data)
}
