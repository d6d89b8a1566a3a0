package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent exchanges",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "how many exchanges to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	history, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open exchange store: %w", err)
	}
	defer history.Close()

	records, err := history.ListExchanges(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(mutedStyle.Render("No exchanges recorded yet."))
		return nil
	}

	for _, record := range records {
		header := fmt.Sprintf("%s  %s", record.CreatedAt.Local().Format("2006-01-02 15:04"), record.ID[:8])
		fmt.Println(titleStyle.Render(header))
		fmt.Printf("  Q: %s\n", record.Question)
		answer := record.Answer
		if idx := strings.IndexByte(answer, '\n'); idx >= 0 {
			answer = answer[:idx] + " ..."
		}
		fmt.Printf("  A: %s\n", answer)
		fmt.Println(mutedStyle.Render(fmt.Sprintf("  %d round(s), %d tokens", record.Rounds, record.TotalTokens)))
	}
	return nil
}
