package session

import (
	"strings"
	"testing"

	"datanerd/internal/dataset"
)

func TestBuildSystemPrompt(t *testing.T) {
	ds := dataset.Load("Title,Views\nA,10\n")
	prompt := BuildSystemPrompt(ds, []string{"get_column_stats", "dataset_summary"}, 5)

	if !strings.Contains(prompt, "Dataset profile: 1 rows, 2 columns") {
		t.Errorf("prompt missing profile:\n%s", prompt)
	}
	if !strings.Contains(prompt, "at most 5 tool calls") {
		t.Errorf("prompt missing round limit:\n%s", prompt)
	}
	if !strings.Contains(prompt, "get_column_stats, dataset_summary") {
		t.Errorf("prompt missing tool list:\n%s", prompt)
	}
}

func TestBuildSystemPromptNoDataset(t *testing.T) {
	prompt := BuildSystemPrompt(nil, nil, 5)
	if !strings.Contains(prompt, "No dataset is currently loaded") {
		t.Errorf("prompt should flag missing dataset:\n%s", prompt)
	}
}
