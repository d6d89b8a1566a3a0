package session

import (
	"fmt"
	"strings"

	"datanerd/internal/dataset"
)

// BuildSystemPrompt assembles the analyst persona, the dataset profile
// and the dispatch contract into one system instruction. The profile is
// regenerated per exchange so a reloaded dataset is reflected
// immediately.
func BuildSystemPrompt(ds *dataset.Dataset, toolNames []string, maxRounds int) string {
	var b strings.Builder

	b.WriteString("You are dataNERD, a data analyst working over a loaded CSV dataset.\n")
	b.WriteString("Answer questions using the provided tools; never invent numbers.\n")
	b.WriteString("Copy column names exactly as they appear in the profile below, including case.\n\n")

	if ds != nil && !ds.Empty() {
		b.WriteString(ds.Profile())
		b.WriteString("\n")
	} else {
		b.WriteString("No dataset is currently loaded. Say so instead of guessing.\n\n")
	}

	fmt.Fprintf(&b, "Rules:\n")
	fmt.Fprintf(&b, "- You may use at most %d tool calls per question, one call per turn.\n", maxRounds)
	b.WriteString("- When a tool returns an error with available_columns, pick a column from that list and retry.\n")
	b.WriteString("- Charts and images produced by tools are shown to the user automatically; describe them, do not reproduce their data.\n")
	b.WriteString("- When you have enough information, answer in plain text without further tool calls.\n")

	if len(toolNames) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s\n", strings.Join(toolNames, ", "))
	}

	return b.String()
}
