package session

import (
	"encoding/json"
	"strings"
	"testing"

	"datanerd/internal/analysis"
	"datanerd/internal/tools"
)

func TestSanitizeString(t *testing.T) {
	if got := sanitizeForModel("plain text", 50); got != "plain text" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeNil(t *testing.T) {
	if got := sanitizeForModel(nil, 50); got != "null" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeStruct(t *testing.T) {
	got := sanitizeForModel(&analysis.DescribeResult{Column: "Views", Count: 3, Mean: 20}, 50)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["column"] != "Views" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestSanitizeImage(t *testing.T) {
	img := &tools.ImageResult{Prompt: "a skyline", MIMEType: "image/png", Data: make([]byte, 4096)}
	got := sanitizeForModel(img, 50)

	if strings.Contains(got, "AAAA") {
		t.Error("image bytes leaked into model content")
	}
	if !strings.Contains(got, "a skyline") {
		t.Errorf("ack should mention the prompt: %q", got)
	}
	if !strings.Contains(got, "image generated") {
		t.Errorf("ack missing status: %q", got)
	}
}

func TestSanitizeChartableUnderLimit(t *testing.T) {
	r := &analysis.TimeSeriesResult{
		Metric: "Views",
		Points: []analysis.TimePoint{{Date: "2024-01-01", Value: 1}},
	}
	got := sanitizeForModel(r, 50)
	if !strings.Contains(got, `"result"`) || !strings.Contains(got, `"chart"`) {
		t.Errorf("under-limit payload should carry result and chart: %q", got)
	}
	if strings.Contains(got, `"truncated":true`) {
		t.Errorf("under-limit payload must not be truncated: %q", got)
	}
}

func TestSanitizeChartableOverLimit(t *testing.T) {
	r := &analysis.TimeSeriesResult{Metric: "Views"}
	for i := 0; i < 80; i++ {
		r.Points = append(r.Points, analysis.TimePoint{Date: "2024-01-01", Value: float64(i)})
	}
	got := sanitizeForModel(r, 50)

	if !strings.Contains(got, `"truncated":true`) {
		t.Errorf("over-limit payload should be truncated: %q", got)
	}
	if strings.Contains(got, `"result"`) {
		t.Errorf("over-limit payload must not carry the full result: %q", got)
	}

	var decoded struct {
		Chart analysis.Chart `json:"chart"`
	}
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(decoded.Chart.Data) != 50 {
		t.Errorf("model chart has %d points, want 50", len(decoded.Chart.Data))
	}

	// Source result untouched.
	if len(r.Points) != 80 {
		t.Errorf("source result mutated: %d points", len(r.Points))
	}
}
