package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askNoSave bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoSave, "no-save", false, "do not record the exchange in history")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}
	engine, err := buildEngine(ds)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	result, err := engine.Ask(context.Background(), question)
	if err != nil {
		return err
	}

	printExchange(newMarkdownRenderer(), result)

	if !askNoSave {
		history, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open exchange store: %w", err)
		}
		defer history.Close()
		if err := history.SaveExchange(result); err != nil {
			zlog.Warnw("failed to save exchange", "error", err)
		}
	}
	return nil
}
